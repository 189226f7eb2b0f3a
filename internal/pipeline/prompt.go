package pipeline

import "fmt"

// promptTemplate is fixed; callers only supply the two free-text fields.
const promptTemplate = "%s with %s color, high quality, detailed"

// BuildPrompt composes the exact prompt string sent to the model from the
// theme description and theme color. No trimming or validation: empty inputs
// produce the template with empty slots, by contract.
func BuildPrompt(themeDescription, themeColor string) string {
	return fmt.Sprintf(promptTemplate, themeDescription, themeColor)
}
