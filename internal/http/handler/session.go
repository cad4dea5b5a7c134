package handler

import (
	"context"
	"io"
	"strconv"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"bookbuddy/internal/capture"
	"bookbuddy/internal/delivery"
	"bookbuddy/internal/model"
	"bookbuddy/internal/service"
	"bookbuddy/internal/session"
)

// AudioLevelHeader carries the client-measured input level of a chunk, 0..1.
const AudioLevelHeader = "X-Audio-Level"

type createSessionResponse struct {
	session.Snapshot
	ChunkIntervalMS int64    `json:"chunk_interval_ms"`
	BookTypes       []string `json:"book_types"`
}

type fetchRequest struct {
	URL  string `json:"url"`
	Send bool   `json:"send"`
}

type renderRequest struct {
	Style  string `json:"style"`
	Format string `json:"format"`
}

type listResponse[T any] struct {
	Data []T `json:"data"`
}

// pathID reads the :id route parameter, which must be a UUID.
func pathID(c *fiber.Ctx) (string, bool) {
	id := c.Params("id")
	if _, err := uuid.Parse(id); err != nil {
		return "", false
	}
	return id, true
}

func invalidID(c *fiber.Ctx) error {
	return writeError(c, fiber.StatusBadRequest, "INVALID_ID", "invalid id format")
}

// CreateSession starts a new working session with default settings.
//
// @Summary  Create session
// @Tags     sessions
// @Produce  json
// @Success  201 {object} createSessionResponse
// @Router   /sessions [post]
func CreateSession(svc service.SessionService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		snap := svc.Create(c.UserContext())
		return c.Status(fiber.StatusCreated).JSON(createSessionResponse{
			Snapshot:        snap,
			ChunkIntervalMS: capture.ChunkInterval.Milliseconds(),
			BookTypes:       session.BookTypes,
		})
	}
}

// GetSession returns the current state of a session.
//
// @Summary  Session snapshot
// @Tags     sessions
// @Produce  json
// @Param    id path string true "Session ID"
// @Success  200 {object} session.Snapshot
// @Failure  404 {object} errorPayload
// @Router   /sessions/{id} [get]
func GetSession(svc service.SessionService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, ok := pathID(c)
		if !ok {
			return invalidID(c)
		}
		snap, err := svc.Snapshot(c.UserContext(), id)
		if err != nil {
			return writeServiceError(c, err)
		}
		return c.JSON(snap)
	}
}

func ClearSession(svc service.SessionService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, ok := pathID(c)
		if !ok {
			return invalidID(c)
		}
		snap, err := svc.Clear(c.UserContext(), id)
		if err != nil {
			return writeServiceError(c, err)
		}
		return c.JSON(snap)
	}
}

// DeleteSession ends a session, stopping any recording and dropping its
// pending audio.
//
// @Summary  Delete session
// @Tags     sessions
// @Param    id path string true "Session ID"
// @Success  204
// @Failure  404 {object} errorPayload
// @Router   /sessions/{id} [delete]
func DeleteSession(svc service.SessionService) fiber.Handler {
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

// ExportSettings returns the flat settings object as a downloadable file.
//
// @Summary  Export settings
// @Tags     settings
// @Produce  json
// @Param    id path string true "Session ID"
// @Success  200 {object} session.Settings
// @Router   /sessions/{id}/settings [get]
func ExportSettings(svc service.SessionService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, ok := pathID(c)
		if !ok {
			return invalidID(c)
		}
		s, err := svc.Settings(c.UserContext(), id)
		if err != nil {
			return writeServiceError(c, err)
		}
		data, err := s.Export()
		if err != nil {
			return writeServiceError(c, err)
		}
		if c.QueryBool("download") {
			c.Attachment("book-buddy-settings.json")
		}
		c.Type("json")
		return c.Send(data)
	}
}

// ImportSettings overlays the request body on the session settings.
//
// @Summary  Import settings
// @Tags     settings
// @Accept   json
// @Produce  json
// @Param    id path string true "Session ID"
// @Success  200 {object} session.Settings
// @Failure  400 {object} errorPayload
// @Router   /sessions/{id}/settings [put]
func ImportSettings(svc service.SessionService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, ok := pathID(c)
		if !ok {
			return invalidID(c)
		}
		s, err := svc.ImportSettings(c.UserContext(), id, c.Body())
		if err != nil {
			return writeServiceError(c, err)
		}
		return c.JSON(s)
	}
}

func UpdateForm(svc service.SessionService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, ok := pathID(c)
		if !ok {
			return invalidID(c)
		}
		var f session.Form
		if err := c.BodyParser(&f); err != nil {
			return writeError(c, fiber.StatusBadRequest, "INVALID_BODY", "invalid request body")
		}
		snap, err := svc.UpdateForm(c.UserContext(), id, f)
		if err != nil {
			return writeServiceError(c, err)
		}
		return c.JSON(snap)
	}
}

func UpdateMetadata(svc service.SessionService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, ok := pathID(c)
		if !ok {
			return invalidID(c)
		}
		var m model.BookMetadata
		if err := c.BodyParser(&m); err != nil {
			return writeError(c, fiber.StatusBadRequest, "INVALID_BODY", "invalid request body")
		}
		snap, err := svc.UpdateMetadata(c.UserContext(), id, m)
		if err != nil {
			return writeServiceError(c, err)
		}
		return c.JSON(snap)
	}
}

// StartRecording claims the session's capture device.
//
// @Summary  Start recording
// @Tags     recording
// @Produce  json
// @Param    id path string true "Session ID"
// @Success  201 {object} service.RecordingStatus
// @Failure  409 {object} errorPayload
// @Router   /sessions/{id}/recording/start [post]
func StartRecording(svc service.SessionService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, ok := pathID(c)
		if !ok {
			return invalidID(c)
		}
		st, err := svc.StartRecording(c.UserContext(), id)
		if err != nil {
			return writeServiceError(c, err)
		}
		return c.Status(fiber.StatusCreated).JSON(st)
	}
}

// PushChunk appends the raw request body to the active recording.
//
// @Summary  Push audio chunk
// @Tags     recording
// @Accept   octet-stream
// @Param    id path string true "Session ID"
// @Param    X-Audio-Level header number false "Input level 0..1"
// @Success  202
// @Failure  409 {object} errorPayload
// @Router   /sessions/{id}/recording/chunks [post]
func PushChunk(svc service.SessionService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, ok := pathID(c)
		if !ok {
			return invalidID(c)
		}
		level := 0.0
		if v := c.Get(AudioLevelHeader); v != "" {
			f, err := strconv.ParseFloat(v, 64)
			if err != nil || f < 0 || f > 1 {
				return writeError(c, fiber.StatusBadRequest, "INVALID_LEVEL", "audio level must be between 0 and 1")
			}
			level = f
		}
		body := c.Body()
		if len(body) == 0 {
			return writeError(c, fiber.StatusBadRequest, "CHUNK_REQUIRED", "chunk body is required")
		}
		if err := svc.PushChunk(c.UserContext(), id, body, level); err != nil {
			return writeServiceError(c, err)
		}
		return c.SendStatus(fiber.StatusAccepted)
	}
}

func GetRecording(svc service.SessionService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, ok := pathID(c)
		if !ok {
			return invalidID(c)
		}
		st, err := svc.RecordingStatus(c.UserContext(), id)
		if err != nil {
			return writeServiceError(c, err)
		}
		return c.JSON(st)
	}
}

// StopRecording finalizes the capture. With auto-send on, the recording is
// delivered before the response is written.
//
// @Summary  Stop recording
// @Tags     recording
// @Produce  json
// @Param    id path string true "Session ID"
// @Success  200 {object} service.StopResult
// @Router   /sessions/{id}/recording/stop [post]
func StopRecording(svc service.SessionService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, ok := pathID(c)
		if !ok {
			return invalidID(c)
		}
		res, err := svc.StopRecording(c.UserContext(), id)
		if err != nil {
			return writeServiceError(c, err)
		}
		return c.JSON(res)
	}
}

// SendPending delivers the last recording manually.
//
// @Summary  Send recording
// @Tags     delivery
// @Produce  json
// @Param    id path string true "Session ID"
// @Success  200 {object} service.SendResult
// @Failure  400 {object} errorPayload
// @Failure  409 {object} errorPayload
// @Router   /sessions/{id}/send [post]
func SendPending(svc service.SessionService) fiber.Handler {
	return sendWith(svc.SendPending)
}

func SendText(svc service.SessionService) fiber.Handler {
	return sendWith(svc.SendText)
}

func SendTest(svc service.SessionService) fiber.Handler {
	return sendWith(svc.SendTest)
}

type sendFunc func(ctx context.Context, id string) (*service.SendResult, error)

func sendWith(send sendFunc) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, ok := pathID(c)
		if !ok {
			return invalidID(c)
		}
		res, err := send(c.UserContext(), id)
		if err != nil {
			return writeServiceError(c, err)
		}
		return c.JSON(res)
	}
}

// SendFile delivers an uploaded audio file (multipart field "file").
//
// @Summary  Send audio file
// @Tags     delivery
// @Accept   mpfd
// @Produce  json
// @Param    id   path     string true "Session ID"
// @Param    file formData file   true "Audio file (mp3, wav, ogg, webm, m4a)"
// @Success  200 {object} service.SendResult
// @Failure  415 {object} errorPayload
// @Router   /sessions/{id}/send/file [post]
func SendFile(svc service.SessionService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, ok := pathID(c)
		if !ok {
			return invalidID(c)
		}
		fh, err := c.FormFile("file")
		if err != nil {
			return writeError(c, fiber.StatusBadRequest, "FILE_REQUIRED", "file is required")
		}
		f, err := fh.Open()
		if err != nil {
			return writeError(c, fiber.StatusBadRequest, "FILE_OPEN_ERROR", "cannot open uploaded file")
		}
		defer f.Close()

		data, err := io.ReadAll(f)
		if err != nil {
			return writeError(c, fiber.StatusBadRequest, "FILE_OPEN_ERROR", "cannot read uploaded file")
		}
		res, err := svc.SendFile(c.UserContext(), id, fh.Filename, fh.Header.Get("Content-Type"), data)
		if err != nil {
			return writeServiceError(c, err)
		}
		return c.JSON(res)
	}
}

// FetchDocument pulls the text of a shared document into the session.
//
// @Summary  Fetch shared document
// @Tags     delivery
// @Accept   json
// @Produce  json
// @Param    id   path string       true "Session ID"
// @Param    body body fetchRequest true "Document link"
// @Success  200 {object} service.FetchResult
// @Failure  400 {object} errorPayload
// @Failure  502 {object} errorPayload
// @Router   /sessions/{id}/fetch [post]
func FetchDocument(svc service.SessionService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, ok := pathID(c)
		if !ok {
			return invalidID(c)
		}
		var req fetchRequest
		if err := c.BodyParser(&req); err != nil || req.URL == "" {
			return writeError(c, fiber.StatusBadRequest, "URL_REQUIRED", "document url is required")
		}
		res, err := svc.FetchDocument(c.UserContext(), id, req.URL, req.Send)
		if err != nil {
			return writeServiceError(c, err)
		}
		return c.JSON(res)
	}
}

// GetHistory lists the session's last deliveries, most recent first.
//
// @Summary  Delivery history
// @Tags     delivery
// @Produce  json
// @Param    id path string true "Session ID"
// @Success  200 {object} listResponse[delivery.Record]
// @Router   /sessions/{id}/history [get]
func GetHistory(svc service.SessionService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, ok := pathID(c)
		if !ok {
			return invalidID(c)
		}
		h, err := svc.History(c.UserContext(), id)
		if err != nil {
			return writeServiceError(c, err)
		}
		return c.JSON(listResponse[delivery.Record]{Data: h})
	}
}

// GetDeliveryLog reads the persisted delivery log, which outlives restarts.
func GetDeliveryLog(svc service.SessionService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, ok := pathID(c)
		if !ok {
			return invalidID(c)
		}
		rows, err := svc.DeliveryLog(c.UserContext(), id)
		if err != nil {
			return writeServiceError(c, err)
		}
		return c.JSON(listResponse[model.Delivery]{Data: rows})
	}
}

// RenderSession renders the session content and streams the file back.
//
// @Summary  Render document
// @Tags     renditions
// @Accept   json
// @Produce  application/pdf,application/epub+zip
// @Param    id   path string        true  "Session ID"
// @Param    body body renderRequest false "Style and format"
// @Success  201 {file} binary
// @Failure  422 {object} errorPayload
// @Router   /sessions/{id}/render [post]
func RenderSession(svc service.SessionService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, ok := pathID(c)
		if !ok {
			return invalidID(c)
		}
		var req renderRequest
		if len(c.Body()) > 0 {
			if err := c.BodyParser(&req); err != nil {
				return writeError(c, fiber.StatusBadRequest, "INVALID_BODY", "invalid request body")
			}
		}
		res, err := svc.Render(c.UserContext(), id, req.Style, req.Format)
		if err != nil {
			return writeServiceError(c, err)
		}
		c.Set(RenditionIDHeader, res.Rendition.ID)
		c.Set(fiber.HeaderLocation, "/renditions/"+res.Rendition.ID)
		c.Attachment(res.Rendition.Filename)
		c.Set(fiber.HeaderContentType, res.Rendition.ContentType)
		return c.Status(fiber.StatusCreated).Send(res.Data)
	}
}
