package suggestion

import (
	"context"
	"fmt"
	"time"

	"github.com/xpanvictor/interm/internal/domains/session"
	"github.com/xpanvictor/interm/internal/models/processor"
	xio "github.com/xpanvictor/interm/pkg/io"
	"github.com/xpanvictor/interm/pkg/utils"
)

// IngestText distills text into the conversation context and saves it
// for later sessions.
func (e *Engine) IngestText(ctx context.Context, userID, text string) error {
	return e.ingest(ctx, userID, processor.Document{Text: text})
}

// IngestFile does the same for a file on disk. Text files are inlined,
// PDFs and images go to the provider as attachments.
func (e *Engine) IngestFile(ctx context.Context, userID, path string) error {
	if err := e.guard("set context"); err != nil {
		e.fail(ctx, err)
		return err
	}
	doc, err := processor.LoadDocument(path)
	if err != nil {
		err = &ContextProcessingError{Cause: err}
		e.fail(ctx, err)
		return err
	}
	return e.ingest(ctx, userID, doc)
}

func (e *Engine) ingest(ctx context.Context, userID string, doc processor.Document) error {
	if err := e.guard("set context"); err != nil {
		e.fail(ctx, err)
		return err
	}
	digest, err := e.proc.Digest(ctx, doc)
	if err != nil {
		err = &ContextProcessingError{Cause: err}
		e.fail(ctx, err)
		return err
	}

	update := xio.ContextUpdatePayload{
		HasContext: true,
		Summary:    digest.Summary,
		Preview:    preview(digest.Extracted),
		IsFile:     doc.IsFile(),
	}
	ctype, title := session.ContextText, "Text Context "+time.Now().Format("2006-01-02")
	if doc.IsFile() {
		update.Message = "File context set: " + doc.Name
		ctype, title = session.ContextFile, doc.Name
	}
	if err := e.applyContext(ctx, "set context", digest.Extracted, update); err != nil {
		return err
	}

	e.persistContext(session.NewContextRecord(userID, ctype, title, digest.Extracted, map[string]any{
		"summary":     digest.Summary,
		"rawLength":   digest.RawLength,
		"processedAt": time.Now().Format(time.RFC3339),
	}))
	return nil
}

// persistContext saves in the background under the persist timeout.
func (e *Engine) persistContext(rec *session.ContextRecord) {
	if e.repo == nil {
		return
	}
	e.persist.Add(1)
	go func() {
		defer e.persist.Done()
		ctx, cancel := context.WithTimeout(context.Background(), e.cfg.PersistTimeout)
		defer cancel()
		if err := e.repo.SaveContext(ctx, rec); err != nil {
			e.logger.Warnf("suggestion: failed to save context %q: %v", rec.Title, err)
		}
	}()
}

// RestoreContext applies the user's latest saved context. A slow or
// failing store resolves to no context.
func (e *Engine) RestoreContext(ctx context.Context, userID string) (bool, error) {
	if e.repo == nil {
		return false, nil
	}
	rec, err := utils.WithTimeout(ctx, e.cfg.PersistTimeout, func(ctx context.Context) (*session.ContextRecord, error) {
		return e.repo.GetLatestContext(ctx, userID)
	})
	if err != nil {
		e.logger.Warnf("suggestion: context restore skipped: %v", err)
		return false, nil
	}
	if rec == nil || rec.Content == "" {
		return false, nil
	}

	summary, _ := rec.Metadata["summary"].(string)
	err = e.applyContext(ctx, "restore context", rec.Content, xio.ContextUpdatePayload{
		HasContext: true,
		Summary:    summary,
		Preview:    preview(rec.Content),
		IsFile:     rec.Type == session.ContextFile,
		Message:    "Restored context: " + rec.Title,
	})
	return err == nil, err
}

// DeleteContext removes saved context and clears the live one.
func (e *Engine) DeleteContext(ctx context.Context, userID string) error {
	if err := e.guard("delete context"); err != nil {
		e.fail(ctx, err)
		return err
	}
	if e.repo != nil {
		_, err := utils.WithTimeout(ctx, e.cfg.PersistTimeout, func(ctx context.Context) (struct{}, error) {
			return struct{}{}, e.repo.DeleteContexts(ctx, userID)
		})
		if err != nil {
			err = &ContextProcessingError{Cause: fmt.Errorf("failed to delete saved context: %w", err)}
			e.fail(ctx, err)
			return err
		}
	}
	return e.ClearContext(ctx)
}
