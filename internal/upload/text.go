package upload

import "github.com/BaSui01/lokingai/types"

// RequireText rejects a missing (nil) or empty text field.
// Whitespace-only text is accepted, as any non-empty string is.
func RequireText(text *string) error {
	if text == nil || *text == "" {
		return types.NewEmptyTextError()
	}
	return nil
}
