package model

// UploadedAsset is an upload spooled to a temporary file. It is built once at
// the start of ingestion and passed by value through the pipeline.
type UploadedAsset struct {
	Path      string // temporary location, removed when the request ends
	Name      string // declared track name
	Size      int64
	Extension string // lower-cased, with the leading dot
}

// AudioMetadata is what the extractor learned from the container itself.
type AudioMetadata struct {
	FormatName string  // ffprobe format_name, e.g. "mp3"
	CodecName  string  // codec of the first audio stream
	Duration   float64 // seconds
}

// NormalizedAsset is the normalizer's output, still in temporary storage.
type NormalizedAsset struct {
	Path     string
	Duration float64
	Size     int64
}
