package domain

// MyGroup is a group the current member belongs to.
type MyGroup struct {
	ID         int64  `json:"id"`
	Name       string `json:"name"`
	Supervisor bool   `json:"supervisor"`
}

// AdminGroupMember is a membership row in the admin group view.
type AdminGroupMember struct {
	MemberID   int64  `json:"memberId"`
	EmployeeID string `json:"employeeId"`
	Name       string `json:"name"`
	Role       Role   `json:"role"`
	Supervisor bool   `json:"supervisor"`
}

// AdminGroup is a routing group with its members.
type AdminGroup struct {
	ID        int64              `json:"id"`
	Name      string             `json:"name"`
	CreatedAt Timestamp          `json:"createdAt"`
	Members   []AdminGroupMember `json:"members"`
}

// HelpdeskCategory classifies tickets.
type HelpdeskCategory struct {
	ID        int64     `json:"id"`
	Name      string    `json:"name"`
	CreatedAt Timestamp `json:"createdAt"`
}
