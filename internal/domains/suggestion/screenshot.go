package suggestion

import (
	"context"
	"os"
	"strings"
	"time"

	"github.com/gabriel-vasile/mimetype"
	"github.com/xpanvictor/interm/internal/constants/prompts"
	"github.com/xpanvictor/interm/internal/observability"
	"github.com/xpanvictor/interm/pkg/assistant"
	xio "github.com/xpanvictor/interm/pkg/io"
	"github.com/xpanvictor/interm/pkg/utils"
)

type ScreenshotResult struct {
	ExtractedText string `json:"extractedText"`
	Solution      string `json:"solution"`
}

// ProcessScreenshot reads the text out of an image and asks for a
// solution to it. OCR and solving each run under their own timeout.
func (e *Engine) ProcessScreenshot(ctx context.Context, imagePath string) (res ScreenshotResult, err error) {
	start := time.Now()
	defer func() { observability.ObserveSuggestion("screenshot", start, err) }()

	res, err = e.processScreenshot(ctx, imagePath)
	if err != nil {
		e.fail(ctx, err)
		e.em.Emit(ctx, xio.EventScreenshotProcessed, xio.ScreenshotPayload{
			Success:         false,
			Error:           err.(*ScreenshotProcessingError).Cause.Error(),
			ClearSuggestion: true,
		})
		return res, err
	}

	e.em.Emit(ctx, xio.EventSuggestion, xio.TextPayload{Text: res.Solution, IsFinal: true})
	e.em.Emit(ctx, xio.EventScreenshotProcessed, xio.ScreenshotPayload{Success: true})
	return res, nil
}

func (e *Engine) processScreenshot(ctx context.Context, imagePath string) (ScreenshotResult, error) {
	var res ScreenshotResult

	data, err := os.ReadFile(imagePath)
	if err != nil {
		return res, &ScreenshotProcessingError{Stage: "read", Cause: err}
	}
	if len(data) == 0 {
		return res, &ScreenshotProcessingError{Stage: "read", Cause: ErrEmptyScreenshot}
	}
	media := []assistant.Media{{MIMEType: mimetype.Detect(data).String(), Data: data}}

	res.ExtractedText, err = utils.WithTimeout(ctx, e.cfg.OCRTimeout, func(ctx context.Context) (string, error) {
		return e.provider.GenerateMultimodal(ctx, assistant.GenerateRequest{Prompt: prompts.OCR_PROMPT.Text()}, media)
	})
	if err != nil {
		return res, &ScreenshotProcessingError{Stage: "ocr", Cause: err}
	}

	system := prompts.SOLVER_PROMPT.Text()
	if blob := e.Context(); blob != "" {
		system += prompts.SOLVER_CONTEXT.Format(blob)
	}
	solution, err := utils.WithTimeout(ctx, e.cfg.SolveTimeout, func(ctx context.Context) (string, error) {
		return e.provider.Generate(ctx, assistant.GenerateRequest{
			System: system,
			Prompt: prompts.SOLVER_INPUT.Format(res.ExtractedText),
		})
	})
	if err != nil {
		return res, &ScreenshotProcessingError{Stage: "solve", Cause: err}
	}
	res.Solution = FormatSolution(solution)
	return res, nil
}

// FormatSolution fences answers that look like bare code.
func FormatSolution(solution string) string {
	if strings.Contains(solution, "```") || !strings.ContainsAny(solution, "{};") {
		return solution
	}
	return "```\n" + solution + "\n```"
}
