package enums

type OutputFormat string

const (
	OutputFormatText OutputFormat = "text"
	OutputFormatJSON OutputFormat = "json"
)

func ParseOutputFormat(raw string) (OutputFormat, bool) {
	switch OutputFormat(raw) {
	case OutputFormatText, OutputFormatJSON:
		return OutputFormat(raw), true
	default:
		return "", false
	}
}
