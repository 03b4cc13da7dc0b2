package application

import (
	"fmt"
	"net/url"
	"path"
	"slices"
	"strings"
)

// AllowedExtensions lists file types the backend accepts for manual files
var AllowedExtensions = []string{".md", ".markdown", ".txt", ".json", ".yaml", ".yml", ".csv", ".html"}

// ValidateRequired checks if a string field is non-empty (after trimming whitespace).
// Returns a ValidationError if the field is empty.
func ValidateRequired(fieldName, value string) error {
	if strings.TrimSpace(value) == "" {
		displayName := formatFieldName(fieldName)
		return &ValidationError{
			Field:   fieldName,
			Message: fmt.Sprintf("%s is required", displayName),
		}
	}
	return nil
}

// formatFieldName converts camelCase field names to space-separated words
// for more readable error messages (e.g., "collectionName" -> "collection name")
func formatFieldName(fieldName string) string {
	replacements := map[string]string{
		"collectionName": "collection name",
		"filename":       "file name",
		"folder":         "folder",
		"url":            "URL",
		"description":    "description",
	}

	if formatted, ok := replacements[fieldName]; ok {
		return formatted
	}
	return fieldName
}

// ValidateCollectionName checks a new collection name
func ValidateCollectionName(name string) error {
	if err := ValidateRequired("collectionName", name); err != nil {
		return err
	}
	if strings.ContainsAny(name, `/\`) {
		return &ValidationError{
			Field:   "collectionName",
			Message: fmt.Sprintf("collection name cannot contain slashes: %s", name),
		}
	}
	return nil
}

// ValidateFilename checks a file name and its extension
func ValidateFilename(name string) error {
	if err := ValidateRequired("filename", name); err != nil {
		return err
	}
	if strings.ContainsAny(name, `/\`) {
		return &ValidationError{
			Field:   "filename",
			Message: fmt.Sprintf("file name cannot contain slashes: %s", name),
		}
	}
	ext := strings.ToLower(path.Ext(name))
	if !slices.Contains(AllowedExtensions, ext) {
		return &ValidationError{
			Field:   "filename",
			Message: fmt.Sprintf("file extension %q is not allowed (use one of %s)", ext, strings.Join(AllowedExtensions, ", ")),
		}
	}
	return nil
}

// ValidateFolder checks an optional folder path
func ValidateFolder(folder string) error {
	for _, seg := range strings.Split(strings.Trim(folder, "/"), "/") {
		if seg == ".." || seg == "." {
			return &ValidationError{
				Field:   "folder",
				Message: fmt.Sprintf("folder cannot contain relative segments: %s", folder),
			}
		}
	}
	return nil
}

// ValidateURL checks a crawl target
func ValidateURL(raw string) error {
	if err := ValidateRequired("url", raw); err != nil {
		return err
	}
	u, err := url.Parse(strings.TrimSpace(raw))
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return &ValidationError{
			Field:   "url",
			Message: fmt.Sprintf("expected an http(s) URL, got: %s", raw),
		}
	}
	return nil
}
