package handlers

import (
	"context"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/helpdesk-client/internal/admin"
	"github.com/spec-kit/helpdesk-client/internal/api/dto"
	"github.com/spec-kit/helpdesk-client/internal/domain"
	apperrors "github.com/spec-kit/helpdesk-client/pkg/util/errorutil"
)

// AdminHandler exposes the member roster, group and category management and
// the audit log browser.
type AdminHandler struct {
	members    *admin.Members
	management *admin.Management
	audit      *admin.AuditLogs
	exportDir  string
}

// NewAdminHandler constructs handler. CSV exports are written to exportDir.
func NewAdminHandler(members *admin.Members, management *admin.Management, audit *admin.AuditLogs, exportDir string) *AdminHandler {
	if exportDir == "" {
		exportDir = "."
	}
	return &AdminHandler{members: members, management: management, audit: audit, exportDir: exportDir}
}

// Members GET /state/admin/members.
func (h *AdminHandler) Members(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{"data": dto.MembersResponse{
		Items:    h.members.List(),
		Loading:  h.members.Loading(),
		Feedback: h.members.Feedback(),
	}})
}

// Management GET /state/admin/management.
func (h *AdminHandler) Management(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{"data": h.managementView()})
}

// AuditLogs GET /state/admin/audit-logs.
func (h *AdminHandler) AuditLogs(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{"data": h.auditView()})
}

// Reload POST /actions/admin/reload refreshes every admin list.
func (h *AdminHandler) Reload(c *fiber.Ctx) error {
	ctx := c.UserContext()
	if err := h.members.Load(ctx); err != nil {
		return err
	}
	if err := h.management.LoadGroups(ctx); err != nil {
		return err
	}
	if err := h.management.LoadCategories(ctx); err != nil {
		return err
	}
	if err := h.audit.Load(ctx); err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": fiber.Map{
		"members":    len(h.members.List()),
		"groups":     len(h.management.Groups()),
		"categories": len(h.management.Categories()),
		"audit_logs": len(h.audit.Items()),
	}})
}

// UpdateRole POST /actions/admin/members/:id/role.
func (h *AdminHandler) UpdateRole(c *fiber.Ctx) error {
	member, err := h.member(c)
	if err != nil {
		return err
	}
	var req dto.RoleRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	role, ok := domain.ParseRole(string(req.Role))
	if !ok {
		return apperrors.NewValidationError("invalid role", map[string]any{"role": req.Role})
	}
	if member.Role == domain.RoleAdmin {
		return apperrors.NewForbidden("admin accounts cannot be changed")
	}
	if err := h.members.UpdateRole(c.UserContext(), member, role); err != nil {
		return err
	}
	updated, _ := h.members.Find(member.ID)
	return c.JSON(fiber.Map{"data": updated})
}

// DeleteMember POST /actions/admin/members/:id/delete.
func (h *AdminHandler) DeleteMember(c *fiber.Ctx) error {
	member, err := h.member(c)
	if err != nil {
		return err
	}
	var req dto.DeleteRequest
	if len(c.Body()) > 0 {
		if err := c.BodyParser(&req); err != nil {
			return apperrors.NewValidationError("invalid payload", nil)
		}
	}
	if member.Role == domain.RoleAdmin {
		return apperrors.NewForbidden("admin accounts cannot be deleted")
	}
	confirm := admin.ConfirmFunc(func(context.Context, string) bool { return req.Confirm })
	if err := h.members.Delete(c.UserContext(), member, confirm); err != nil {
		return err
	}
	_, exists := h.members.Find(member.ID)
	return c.JSON(fiber.Map{"data": fiber.Map{"id": member.ID, "deleted": !exists}})
}

// CreateCategory POST /actions/admin/categories.
func (h *AdminHandler) CreateCategory(c *fiber.Ctx) error {
	name, err := parseName(c)
	if err != nil {
		return err
	}
	if err := h.management.CreateCategory(c.UserContext(), name); err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": h.managementView()})
}

// RenameCategory POST /actions/admin/categories/:id/rename.
func (h *AdminHandler) RenameCategory(c *fiber.Ctx) error {
	id, err := paramID(c, "id")
	if err != nil {
		return err
	}
	name, err := parseName(c)
	if err != nil {
		return err
	}
	if err := h.management.UpdateCategory(c.UserContext(), id, name); err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": h.managementView()})
}

// DeleteCategory POST /actions/admin/categories/:id/delete.
func (h *AdminHandler) DeleteCategory(c *fiber.Ctx) error {
	id, err := paramID(c, "id")
	if err != nil {
		return err
	}
	if err := h.management.DeleteCategory(c.UserContext(), id); err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": h.managementView()})
}

// CreateGroup POST /actions/admin/groups.
func (h *AdminHandler) CreateGroup(c *fiber.Ctx) error {
	name, err := parseName(c)
	if err != nil {
		return err
	}
	if err := h.management.CreateGroup(c.UserContext(), name); err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": h.managementView()})
}

// AddGroupMember POST /actions/admin/groups/:id/members/:memberId/add.
func (h *AdminHandler) AddGroupMember(c *fiber.Ctx) error {
	return h.groupMemberAction(c, h.management.AddMemberToGroup)
}

// RemoveGroupMember POST /actions/admin/groups/:id/members/:memberId/remove.
func (h *AdminHandler) RemoveGroupMember(c *fiber.Ctx) error {
	return h.groupMemberAction(c, h.management.RemoveMemberFromGroup)
}

// SetSupervisor POST /actions/admin/groups/:id/supervisor/:memberId.
func (h *AdminHandler) SetSupervisor(c *fiber.Ctx) error {
	return h.groupMemberAction(c, h.management.SetGroupSupervisor)
}

func (h *AdminHandler) groupMemberAction(c *fiber.Ctx, action func(ctx context.Context, groupID, memberID int64) error) error {
	groupID, err := paramID(c, "id")
	if err != nil {
		return err
	}
	memberID, err := paramID(c, "memberId")
	if err != nil {
		return err
	}
	if err := action(c.UserContext(), groupID, memberID); err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": h.managementView()})
}

// QueryAuditLogs POST /actions/admin/audit-logs/query replaces the filters
// and reloads.
func (h *AdminHandler) QueryAuditLogs(c *fiber.Ctx) error {
	filters := admin.AuditFilters{Limit: admin.DefaultAuditLimit}
	if len(c.Body()) > 0 {
		if err := c.BodyParser(&filters); err != nil {
			return apperrors.NewValidationError("invalid payload", nil)
		}
	}
	h.audit.SetFilters(filters)
	if err := h.audit.Load(c.UserContext()); err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": h.auditView()})
}

// ExportAuditLogs POST /actions/admin/audit-logs/export.
func (h *AdminHandler) ExportAuditLogs(c *fiber.Ctx) error {
	path, err := h.audit.ExportCSV(c.UserContext(), h.exportDir)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.ExportResponse{Path: path}})
}

// PurgeAuditLogs POST /actions/admin/audit-logs/purge.
func (h *AdminHandler) PurgeAuditLogs(c *fiber.Ctx) error {
	var req dto.PurgeRequest
	if len(c.Body()) > 0 {
		if err := c.BodyParser(&req); err != nil {
			return apperrors.NewValidationError("invalid payload", nil)
		}
	}
	if req.Days < 0 || req.Days > admin.MaxCleanupDays {
		return apperrors.NewValidationError("days out of range", map[string]any{"days": req.Days, "max": admin.MaxCleanupDays})
	}
	if req.Days > 0 {
		h.audit.SetCleanupDays(req.Days)
	}
	result, err := h.audit.Purge(c.UserContext())
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.PurgeResponse{Result: result, Summary: h.audit.CleanupFeedback()}})
}

func (h *AdminHandler) member(c *fiber.Ctx) (domain.Member, error) {
	id, err := paramID(c, "id")
	if err != nil {
		return domain.Member{}, err
	}
	member, ok := h.members.Find(id)
	if !ok {
		return domain.Member{}, apperrors.NewNotFound("member", map[string]any{"id": id})
	}
	return member, nil
}

func (h *AdminHandler) managementView() dto.ManagementResponse {
	return dto.ManagementResponse{
		Groups:           h.management.Groups(),
		Categories:       h.management.Categories(),
		LoadingGroups:    h.management.LoadingGroups(),
		GroupsFeedback:   h.management.GroupsFeedback(),
		CategoryFeedback: h.management.CategoryFeedback(),
	}
}

func (h *AdminHandler) auditView() dto.AuditLogsResponse {
	return dto.AuditLogsResponse{
		Items:           h.audit.Items(),
		Filters:         h.audit.Filters(),
		CleanupDays:     h.audit.CleanupDays(),
		Busy:            h.audit.Busy(),
		Feedback:        h.audit.Feedback(),
		CleanupFeedback: h.audit.CleanupFeedback(),
	}
}

func parseName(c *fiber.Ctx) (string, error) {
	var req dto.NameRequest
	if err := c.BodyParser(&req); err != nil {
		return "", apperrors.NewValidationError("invalid payload", nil)
	}
	return req.Name, nil
}
