package errors

import (
	"net/url"
	"regexp"
	"slices"
	"strings"
	"unicode"
)

const (
	maxDatasetIDLen = 128
	maxPathLen      = 500
)

var datasetIDPattern = regexp.MustCompile(`^[A-Za-z0-9][A-Za-z0-9._-]*$`)

// storeSchemes are the URL schemes the storage layer opens.
var storeSchemes = []string{"http", "https", "s3", "gs", "file", "mem"}

// ValidateDatasetID checks an id before it is placed in a catalog URL:
// letters, digits, '.', '_' and '-', starting alphanumeric, no "..".
func ValidateDatasetID(id string) error {
	switch {
	case id == "":
		return New(ErrCodeInvalidDataset, "dataset id is empty")
	case len(id) > maxDatasetIDLen:
		return New(ErrCodeInvalidDataset, "dataset id longer than %d characters", maxDatasetIDLen)
	case strings.Contains(id, ".."):
		return New(ErrCodeInvalidDataset, "dataset id %q contains \"..\"", id)
	case !datasetIDPattern.MatchString(id):
		return New(ErrCodeInvalidDataset, "invalid dataset id %q", id)
	}
	return nil
}

// ValidateSourceName checks a source key given on the command line or in a
// request. Source keys become path elements, so separators are refused.
func ValidateSourceName(name string) error {
	switch {
	case name == "":
		return New(ErrCodeInvalidSource, "source name is empty")
	case strings.ContainsFunc(name, unicode.IsControl):
		return New(ErrCodeInvalidSource, "source name %q contains control characters", name)
	case strings.ContainsAny(name, `/\`):
		return New(ErrCodeInvalidSource, "source name %q contains a path separator", name)
	}
	return nil
}

// ValidatePath checks a key inside a storage container.
func ValidatePath(path string) error {
	switch {
	case path == "":
		return New(ErrCodeInvalidPath, "path is empty")
	case len(path) > maxPathLen:
		return New(ErrCodeInvalidPath, "path longer than %d characters", maxPathLen)
	case strings.ContainsFunc(path, unicode.IsControl):
		return New(ErrCodeInvalidPath, "path contains control characters")
	case strings.Contains(path, `\`):
		return New(ErrCodeInvalidPath, "path contains a backslash")
	case slices.Contains(strings.Split(path, "/"), ".."):
		return New(ErrCodeInvalidPath, "path %q leaves its container", path)
	}
	return nil
}

// ValidateURL checks that rawURL uses a scheme the storage layer can open.
func ValidateURL(rawURL string) error {
	if rawURL == "" {
		return New(ErrCodeInvalidInput, "URL is empty")
	}
	u, err := url.Parse(rawURL)
	if err != nil {
		return Wrap(ErrCodeInvalidInput, err, "invalid URL %q", rawURL)
	}
	if !slices.Contains(storeSchemes, u.Scheme) {
		return New(ErrCodeInvalidInput, "URL %q: scheme must be one of %s", rawURL, strings.Join(storeSchemes, ", "))
	}
	return nil
}
