package recognition

import (
	"math"

	audioring "github.com/xpanvictor/interm/pkg/io/stt/audioRing"
)

// Timeline is the timing state of the running sub-session. All values
// are milliseconds.
type Timeline struct {
	RestartCounter        int   `json:"restartCounter"`
	ResultEndTimeMs       int64 `json:"resultEndTimeMs"`
	IsFinalEndTimeMs      int64 `json:"isFinalEndTimeMs"`
	FinalRequestEndTimeMs int64 `json:"finalRequestEndTimeMs"`
	BridgingOffsetMs      int64 `json:"bridgingOffsetMs"`
}

// CorrectedTimeMs maps the sub-session local result end time onto the
// whole recording session.
func (t Timeline) CorrectedTimeMs(streamingLimitMs int64) int64 {
	return t.ResultEndTimeMs - t.BridgingOffsetMs + streamingLimitMs*int64(t.RestartCounter)
}

// BridgeReplay picks the tail of the previous sub-session that was
// recorded after its last final result. Chunks are assumed to be evenly
// spread over the streaming limit, so boundaries are approximate and a
// few milliseconds may be heard twice or not at all.
//
// It returns the chunks to replay and the new bridging offset. An empty
// previous log replays nothing and leaves the offset alone.
func BridgeReplay(previous []audioring.AudioInput, streamingLimitMs, finalRequestEndTimeMs, bridgingOffsetMs int64) ([][]byte, int64) {
	if len(previous) == 0 {
		return nil, bridgingOffsetMs
	}

	chunkTime := float64(streamingLimitMs) / float64(len(previous))
	if chunkTime <= 0 {
		return nil, bridgingOffsetMs
	}

	offset := bridgingOffsetMs
	if offset < 0 {
		offset = 0
	}
	if offset > finalRequestEndTimeMs {
		offset = finalRequestEndTimeMs
	}

	chunksFrom := int(math.Floor(float64(finalRequestEndTimeMs-offset) / chunkTime))
	if chunksFrom > len(previous) {
		chunksFrom = len(previous)
	}
	newOffset := int64(math.Floor(float64(len(previous)-chunksFrom) * chunkTime))

	replay := make([][]byte, 0, len(previous)-chunksFrom)
	for _, c := range previous[chunksFrom:] {
		replay = append(replay, c.Data)
	}
	return replay, newOffset
}
