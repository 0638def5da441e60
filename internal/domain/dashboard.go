package domain

// DashboardTab identifies the active dashboard view.
type DashboardTab string

const (
	TabHelpdesk DashboardTab = "helpdesk"
	TabITDesk   DashboardTab = "itdesk"
	TabArchive  DashboardTab = "archive"
	TabMembers  DashboardTab = "members"
	TabAccount  DashboardTab = "account"
)

// Valid reports whether tab is a known dashboard view.
func (t DashboardTab) Valid() bool {
	switch t {
	case TabHelpdesk, TabITDesk, TabArchive, TabMembers, TabAccount:
		return true
	}
	return false
}
