package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/spec-kit/task-distribution/internal/api/dto"
	"github.com/spec-kit/task-distribution/internal/auth"
	"github.com/spec-kit/task-distribution/internal/domain"
	"github.com/spec-kit/task-distribution/internal/importer"
	"github.com/spec-kit/task-distribution/internal/service"
	apperrors "github.com/spec-kit/task-distribution/pkg/util/errorutil"
)

const uploadField = "file"

// TasksHandler serves uploads, listings and task mutations.
type TasksHandler struct {
	distribution *service.DistributionService
	tasks        *service.TaskService
	stager       *importer.Stager
	logger       *zap.Logger
}

// NewTasksHandler constructs handler.
func NewTasksHandler(distribution *service.DistributionService, tasks *service.TaskService, stager *importer.Stager, logger *zap.Logger) *TasksHandler {
	return &TasksHandler{distribution: distribution, tasks: tasks, stager: stager, logger: logger}
}

// Upload handles POST /tasks/upload and POST /tasks/upload-subagent. The
// caller's role decides who receives the tasks.
func (h *TasksHandler) Upload(c *fiber.Ctx) error {
	caller, err := auth.MustPrincipal(c)
	if err != nil {
		return err
	}

	fh, err := c.FormFile(uploadField)
	if err != nil {
		return apperrors.NewValidationError("no file uploaded", map[string]any{"field": uploadField})
	}
	if _, err := importer.FormatFromFilename(fh.Filename); err != nil {
		return apperrors.NewValidationError(err.Error(), map[string]any{"filename": fh.Filename})
	}

	path := h.stager.Path(fh.Filename)
	if err := c.SaveFile(fh, path); err != nil {
		return apperrors.NewInternalError(err)
	}
	defer func() {
		if err := h.stager.Remove(path); err != nil {
			h.logger.Warn("failed to remove staged upload", zap.String("path", path), zap.Error(err))
		}
	}()

	records, err := importer.ParseFile(path)
	if err != nil {
		if errors.Is(err, importer.ErrUnsupportedFormat) {
			return apperrors.NewValidationError(err.Error(), nil)
		}
		return apperrors.NewInternalError(err)
	}

	summary, err := h.distribution.Distribute(c.UserContext(), service.DistributeInput{
		Records: records,
		Creator: caller.Ref(),
	})
	if err != nil {
		return err
	}
	return c.Status(http.StatusCreated).JSON(fiber.Map{
		"data":    dto.NewDistributionResponse(summary),
		"message": "tasks uploaded and distributed successfully",
	})
}

// List returns a handler for one listing variant.
func (h *TasksHandler) List(view service.TaskView) fiber.Handler {
	return func(c *fiber.Ctx) error {
		caller, err := auth.MustPrincipal(c)
		if err != nil {
			return err
		}
		in, err := parseListQuery(c)
		if err != nil {
			return err
		}
		in.View = view

		views, err := h.tasks.List(c.UserContext(), caller.Ref(), in)
		if err != nil {
			return err
		}
		return c.JSON(fiber.Map{"data": dto.NewTaskViewList(views)})
	}
}

// UpdateStatus handles PATCH /tasks/:id/status.
func (h *TasksHandler) UpdateStatus(c *fiber.Ctx) error {
	caller, err := auth.MustPrincipal(c)
	if err != nil {
		return err
	}
	var req dto.TaskStatusRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, "invalid payload")
	}

	task, err := h.tasks.UpdateStatus(c.UserContext(), caller.Ref(), c.Params("id"), req.Status)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.NewTaskResponse(task)})
}

// Delete handles DELETE /tasks/:id.
func (h *TasksHandler) Delete(c *fiber.Ctx) error {
	caller, err := auth.MustPrincipal(c)
	if err != nil {
		return err
	}
	if err := h.tasks.Delete(c.UserContext(), caller.Ref(), c.Params("id")); err != nil {
		return err
	}
	return c.SendStatus(http.StatusNoContent)
}

func parseListQuery(c *fiber.Ctx) (service.ListTasksInput, error) {
	var in service.ListTasksInput
	if raw := c.Query("status"); raw != "" {
		status := domain.TaskStatus(raw)
		in.Status = &status
	}

	pageSize, err := parseIntQuery(c, "page_size", 0)
	if err != nil {
		return in, err
	}
	page, err := parseIntQuery(c, "page", 1)
	if err != nil {
		return in, err
	}
	if pageSize > 0 {
		in.Limit = pageSize
		in.Offset = (page - 1) * pageSize
	}
	return in, nil
}

func parseIntQuery(c *fiber.Ctx, key string, defaultVal int) (int, error) {
	val := c.Query(key)
	if val == "" {
		return defaultVal, nil
	}
	parsed, err := strconv.Atoi(val)
	if err != nil || parsed < 1 {
		return 0, apperrors.NewValidationError("invalid "+key, map[string]any{key: val})
	}
	return parsed, nil
}
