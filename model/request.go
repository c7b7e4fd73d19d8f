package model

// RenameTrackRequest PATCH /tracks/{id} 请求体
type RenameTrackRequest struct {
	Name string `json:"name"`
}

// VerifyTracksRequest POST /tracks/verify 请求体
type VerifyTracksRequest struct {
	TrackIDs []int64 `json:"track_ids"`
}

// VerifyTracksResponse lists the IDs that did not resolve to a live track.
type VerifyTracksResponse struct {
	InvalidTrackIDs []int64 `json:"invalid_track_ids"`
}

// ErrorResponse is the body of every non-2xx JSON response.
type ErrorResponse struct {
	Error  string `json:"error"`
	Reason string `json:"reason"`
}
