package entity

import "fmt"

// Workspace is the pair of external resources provisioned for one
// (owner, category): a spreadsheet and a Drive folder.
type Workspace struct {
	Owner         string `json:"owner"`
	Category      string `json:"category"`
	SpreadsheetID string `json:"spreadsheet_id"`
	FolderID      string `json:"folder_id"`
}

// URL returns the browser link of the workspace spreadsheet.
func (w *Workspace) URL() string {
	return SpreadsheetURL(w.SpreadsheetID)
}

// SpreadsheetURL builds the edit link for a spreadsheet id.
func SpreadsheetURL(id string) string {
	if id == "" {
		return ""
	}
	return fmt.Sprintf("https://docs.google.com/spreadsheets/d/%s/edit", id)
}

// WorkspaceTitle is the name used for both the spreadsheet and the folder.
func WorkspaceTitle(category string) string {
	return category + " Vouchers"
}
