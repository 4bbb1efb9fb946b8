package help

// HelpText contains information about a field
type HelpText struct {
	Title       string
	Description string
	Details     string
	// BySource overrides Details for one upload source.
	BySource map[string]string
}

// Texts contains help information for all wizard fields
var Texts = map[string]HelpText{
	"source": {
		Title:       "SOURCE",
		Description: "Where the uploaded Bruker data comes from.",
		Details: `Bruker archive - a zip read in memory, previews are decoded locally
Import job - the JSON the server returned after the upload,
             previews are fetched from the server work folder`,
	},
	"path": {
		Title:       "PATH",
		Description: "File to open.",
		BySource: map[string]string{
			"archive": `The zip exported from ParaVision. Non-DICOM entries such as
acqp or method files are ignored.`,
			"importjob": `The import job JSON of an upload. Its work folder must still
exist on the server for previews to load.`,
		},
	},
	"output": {
		Title:       "OUTPUT",
		Description: "Where the import job with your selection is written.",
		Details:     "The file keeps the whole tree and work folder. Only the series flagged as selected are imported.",
	},
	"confirm": {
		Title:       "SAVE",
		Description: "Write the import job and leave the wizard.",
		Details:     "Choose Back to change the series selection.",
	},
}

// For returns the help of field, with the details of source when it has
// its own.
func For(field, source string) (HelpText, bool) {
	text, ok := Texts[field]
	if !ok {
		return HelpText{}, false
	}
	if details, ok := text.BySource[source]; ok {
		text.Details = details
	}
	return text, true
}
