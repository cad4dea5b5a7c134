package handler

import (
	"strconv"

	"github.com/gofiber/fiber/v2"

	"bookbuddy/internal/service"
)

// RenditionIDHeader names the rendition created by a render request.
const RenditionIDHeader = "X-Rendition-ID"

// ListRenditions returns archived renditions with limit & offset.
//
// @Summary  List renditions
// @Tags     renditions
// @Produce  json
// @Param    limit  query int false "Page size" default(10)
// @Param    offset query int false "Offset"    default(0)
// @Success  200 {object} service.RenditionListResult
// @Router   /renditions [get]
func ListRenditions(svc service.RenditionService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		limit, err := strconv.Atoi(c.Query("limit", "10"))
		if err != nil {
			return writeError(c, fiber.StatusBadRequest, "INVALID_LIMIT", "invalid limit")
		}
		offset, err := strconv.Atoi(c.Query("offset", "0"))
		if err != nil {
			return writeError(c, fiber.StatusBadRequest, "INVALID_OFFSET", "invalid offset")
		}

		res, err := svc.List(c.UserContext(), limit, offset)
		if err != nil {
			return writeError(c, fiber.StatusInternalServerError, "INTERNAL_ERROR", "internal server error")
		}
		return c.JSON(res)
	}
}

// GetRendition returns rendition metadata and a presigned download URL.
//
// @Summary  Get rendition
// @Tags     renditions
// @Produce  json
// @Param    id path string true "Rendition ID"
// @Success  200 {object} service.RenditionDetail
// @Failure  404 {object} errorPayload
// @Router   /renditions/{id} [get]
func GetRendition(svc service.RenditionService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, ok := pathID(c)
		if !ok {
			return invalidID(c)
		}
		r, err := svc.Get(c.UserContext(), id)
		if err != nil {
			return writeServiceError(c, err)
		}
		return c.JSON(r)
	}
}

// DownloadRendition streams the stored file through the API.
func DownloadRendition(svc service.RenditionService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, ok := pathID(c)
		if !ok {
			return invalidID(c)
		}
		rc, r, err := svc.Open(c.UserContext(), id)
		if err != nil {
			return writeServiceError(c, err)
		}
		// fasthttp closes the stream once it has been written out.
		c.Attachment(r.Filename)
		c.Set(fiber.HeaderContentType, r.ContentType)
		return c.SendStream(rc, int(r.Size))
	}
}

// DeleteRendition removes the stored file and its record.
//
// @Summary  Delete rendition
// @Tags     renditions
// @Param    id path string true "Rendition ID"
// @Success  204
// @Failure  404 {object} errorPayload
// @Router   /renditions/{id} [delete]
func DeleteRendition(svc service.RenditionService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, ok := pathID(c)
		if !ok {
			return invalidID(c)
		}
		if err := svc.Delete(c.UserContext(), id); err != nil {
			return writeServiceError(c, err)
		}
		return c.SendStatus(fiber.StatusNoContent)
	}
}
