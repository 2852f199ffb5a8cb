package server

import (
	"github.com/yogull/yogull-social-platform-sub001/internal/models"

	"github.com/gofiber/fiber/v2"
)

// BlockUser handles POST /api/admin/users/:id/block
// @Summary Block user
// @Description Block a user with an optional reason. Admin only.
// @Tags admin
// @Accept json
// @Produce json
// @Param id path int true "User ID"
// @Param request body object{reason=string} false "Block reason"
// @Success 200 {object} models.User
// @Failure 400 {object} models.ErrorResponse
// @Failure 401 {object} models.ErrorResponse
// @Failure 403 {object} models.ErrorResponse
// @Failure 404 {object} models.ErrorResponse
// @Security BearerAuth
// @Router /admin/users/{id}/block [post]
func (s *Server) BlockUser(c *fiber.Ctx) error {
	userID, err := parseID(c, "id")
	if err != nil {
		return nil
	}
	var req struct {
		Reason string `json:"reason"`
	}
	if len(c.Body()) > 0 {
		if err := parseBody(c, &req); err != nil {
			return nil
		}
	}

	user, err := s.userService.SetBlocked(c.UserContext(), currentUserID(c), userID, true, req.Reason)
	if err != nil {
		return models.RespondWithAppError(c, err)
	}
	return c.JSON(user)
}

// UnblockUser handles POST /api/admin/users/:id/unblock
// @Summary Unblock user
// @Description Lift a block. Admin only.
// @Tags admin
// @Produce json
// @Param id path int true "User ID"
// @Success 200 {object} models.User
// @Failure 400 {object} models.ErrorResponse
// @Failure 401 {object} models.ErrorResponse
// @Failure 403 {object} models.ErrorResponse
// @Failure 404 {object} models.ErrorResponse
// @Security BearerAuth
// @Router /admin/users/{id}/unblock [post]
func (s *Server) UnblockUser(c *fiber.Ctx) error {
	userID, err := parseID(c, "id")
	if err != nil {
		return nil
	}
	user, err := s.userService.SetBlocked(c.UserContext(), currentUserID(c), userID, false, "")
	if err != nil {
		return models.RespondWithAppError(c, err)
	}
	return c.JSON(user)
}

// PromoteUser handles POST /api/admin/users/:id/promote
// @Summary Promote user
// @Description Grant administrator rights. Admin only.
// @Tags admin
// @Produce json
// @Param id path int true "User ID"
// @Success 200 {object} models.User
// @Failure 400 {object} models.ErrorResponse
// @Failure 401 {object} models.ErrorResponse
// @Failure 403 {object} models.ErrorResponse
// @Failure 404 {object} models.ErrorResponse
// @Security BearerAuth
// @Router /admin/users/{id}/promote [post]
func (s *Server) PromoteUser(c *fiber.Ctx) error {
	userID, err := parseID(c, "id")
	if err != nil {
		return nil
	}
	user, err := s.userService.SetAdmin(c.UserContext(), currentUserID(c), userID, true)
	if err != nil {
		return models.RespondWithAppError(c, err)
	}
	return c.JSON(user)
}

// GetIntegrityReport handles GET /api/admin/integrity
// @Summary Integrity report
// @Description Report counter drift and orphaned media without writing.
// @Tags admin
// @Produce json
// @Success 200 {object} service.Report
// @Failure 401 {object} models.ErrorResponse
// @Failure 403 {object} models.ErrorResponse
// @Security BearerAuth
// @Router /admin/integrity [get]
func (s *Server) GetIntegrityReport(c *fiber.Ctx) error {
	report, err := s.integrityService.Scan(c.UserContext())
	if err != nil {
		return models.RespondWithAppError(c, err)
	}
	return c.JSON(report)
}

// RepairIntegrity handles POST /api/admin/integrity/repair
// @Summary Repair integrity
// @Description Recount drifted counters and delete orphaned media.
// @Tags admin
// @Produce json
// @Success 200 {object} service.Report
// @Failure 401 {object} models.ErrorResponse
// @Failure 403 {object} models.ErrorResponse
// @Security BearerAuth
// @Router /admin/integrity/repair [post]
func (s *Server) RepairIntegrity(c *fiber.Ctx) error {
	report, err := s.integrityService.Repair(c.UserContext())
	if err != nil {
		return models.RespondWithAppError(c, err)
	}
	return c.JSON(report)
}

// GetFeatureFlags returns configured feature flags and evaluated state for current user.
// @Summary Feature flags
// @Description Configured flags and their evaluation for the current user. Admin only.
// @Tags admin
// @Produce json
// @Success 200 {object} object{raw=object,evaluated=object}
// @Failure 401 {object} models.ErrorResponse
// @Failure 403 {object} models.ErrorResponse
// @Security BearerAuth
// @Router /admin/feature-flags [get]
func (s *Server) GetFeatureFlags(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{
		"raw":       s.featureFlags.Raw(),
		"evaluated": s.featureFlags.Snapshot(currentUserID(c)),
	})
}
