package chunking

import "fmt"

// DownloadError is returned when the source video cannot be fetched from
// storage
type DownloadError struct {
	Path string
	Err  error
}

func (e *DownloadError) Error() string {
	return fmt.Sprintf("download of %q failed: %v", e.Path, e.Err)
}

func (e *DownloadError) Unwrap() error {
	return e.Err
}

// ExtractionError is returned when the audio track cannot be extracted
// from the downloaded video
type ExtractionError struct {
	Err error
}

func (e *ExtractionError) Error() string {
	return fmt.Sprintf("audio extraction failed: %v", e.Err)
}

func (e *ExtractionError) Unwrap() error {
	return e.Err
}

// UploadError is returned when one or more chunk uploads fail. The session
// is aborted but chunks uploaded before and after the failures are kept;
// there is no rollback.
type UploadError struct {
	FailedIndices []int
	Err           error // the first failure encountered
}

func (e *UploadError) Error() string {
	return fmt.Sprintf("upload failed for chunks %v: %v", e.FailedIndices, e.Err)
}

func (e *UploadError) Unwrap() error {
	return e.Err
}
