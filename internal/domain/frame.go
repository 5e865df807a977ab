package domain

// Frame is a single still image sampled from a video chunk at a fixed
// rate. TimestampS is derived from the sampling rate: frame i extracted at
// fps f sits at i/f seconds into the chunk.
type Frame struct {
	Index      int     `json:"frame_index"`
	TimestampS float64 `json:"timestamp_s"`
	JPEGPath   string  `json:"jpeg_path"`
}

// FrameAnnotation is the vision processor's answer for one frame. The
// FrameIndex correlates the annotation back to the frame it describes;
// the batch pipeline relies on it to restore global ordering.
type FrameAnnotation struct {
	FrameIndex int     `json:"frame_index"`
	TimestampS float64 `json:"timestamp_s"`
	Caption    string  `json:"caption"`
	TextSeen   string  `json:"text_seen"`
}
