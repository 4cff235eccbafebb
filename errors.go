package servpack

import "errors"

var (
	// Manifest load/validation failures. Fatal for the whole run.
	ErrManifest = errors.New("invalid manifest")

	// Per-asset failures. Recorded in the run report, the run continues.
	ErrProviderUnavailable    = errors.New("provider unavailable")
	ErrAssetNotFound          = errors.New("asset not found")
	ErrDownloadFailed         = errors.New("download failed")
	ErrSelectorMatchedNothing = errors.New("selector matched nothing")
	ErrSumsMismatch           = errors.New("checksum mismatch")

	// Expression and action failures. Abort the remaining actions of the
	// asset being processed; files already on disk are left alone.
	ErrTemplate             = errors.New("template error")
	ErrAmbiguousPrimaryFile = errors.New("ambiguous primary file")
	ErrNoFiles              = errors.New("no files")
	ErrUnsupportedArchive   = errors.New("unsupported archive")
	ErrExtractionFailed     = errors.New("extraction failed")
)

// Kind names the error category of err for the run report.
func Kind(err error) string {
	switch {
	case errors.Is(err, ErrManifest):
		return "manifest"
	case errors.Is(err, ErrAssetNotFound):
		return "asset_not_found"
	case errors.Is(err, ErrProviderUnavailable):
		return "provider_unavailable"
	case errors.Is(err, ErrSelectorMatchedNothing):
		return "selector_matched_nothing"
	case errors.Is(err, ErrSumsMismatch):
		return "sums_mismatch"
	case errors.Is(err, ErrDownloadFailed):
		return "download_failed"
	case errors.Is(err, ErrTemplate):
		return "template"
	case errors.Is(err, ErrAmbiguousPrimaryFile):
		return "ambiguous_primary_file"
	case errors.Is(err, ErrUnsupportedArchive):
		return "unsupported_archive"
	case errors.Is(err, ErrExtractionFailed):
		return "extraction_failed"
	case err != nil:
		return "error"
	}
	return ""
}
