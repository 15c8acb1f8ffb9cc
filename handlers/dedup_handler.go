package handlers

import (
	"bytes"
	"context"
	"io"
	"mime/multipart"

	"github.com/fenilmodi00/twipo-dedup/models"
	"github.com/fenilmodi00/twipo-dedup/services"
	"github.com/fenilmodi00/twipo-dedup/shared"
	"github.com/gofiber/fiber/v2"
	"github.com/sirupsen/logrus"
)

// AuctionSource supplies the auction table when a request does not upload one.
type AuctionSource interface {
	Fetch(ctx context.Context) (*services.AuctionFetchResult, error)
}

// RunRecorder persists completed runs.
type RunRecorder interface {
	SaveRun(ctx context.Context, result *models.DedupResult, auctionOrigin string) error
}

type DedupHandler struct {
	Engine   *services.DeduplicationEngine
	Auctions AuctionSource
	Recorder RunRecorder
}

func NewDedupHandler(engine *services.DeduplicationEngine, auctions AuctionSource, recorder RunRecorder) *DedupHandler {
	return &DedupHandler{
		Engine:   engine,
		Auctions: auctions,
		Recorder: recorder,
	}
}

// Dedup resolves an uploaded IPO CSV. The auction CSV is taken from the
// "auction" form file when present and fetched otherwise.
func (h *DedupHandler) Dedup(c *fiber.Ctx) error {
	ipoFile, err := c.FormFile("ipo")
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"success": false,
			"error":   "Missing ipo file",
		})
	}

	ipo, err := readUploadedTable(ipoFile, c.Query("encoding", services.EncodingAuto))
	if err != nil {
		return errorResponse(c, err)
	}

	auctions, origin, err := h.auctionTable(c)
	if err != nil {
		return errorResponse(c, err)
	}

	result, err := h.Engine.Resolve(&ipo, &auctions)
	if err != nil {
		return errorResponse(c, err)
	}

	if h.Recorder != nil {
		if err := h.Recorder.SaveRun(c.Context(), result, origin); err != nil {
			logrus.WithError(err).WithField("run_id", result.RunID).Warn("Failed to persist resolution run")
		}
	}

	if c.Query("format") == "csv" {
		var buf bytes.Buffer
		if err := services.WriteTable(&buf, result.Output, c.QueryBool("quote_all", false)); err != nil {
			return errorResponse(c, err)
		}
		c.Set(fiber.HeaderContentType, "text/csv; charset=utf-8")
		c.Set("X-Run-ID", result.RunID.String())
		return c.Send(buf.Bytes())
	}

	return c.JSON(fiber.Map{
		"success": true,
		"data": fiber.Map{
			"summary":        result.Summary(origin),
			"events":         result.Events,
			"auction_origin": origin,
		},
	})
}

func (h *DedupHandler) auctionTable(c *fiber.Ctx) (models.Table, string, error) {
	if auctionFile, err := c.FormFile("auction"); err == nil {
		data, err := readUploadedBytes(auctionFile)
		if err != nil {
			return models.Table{}, "", err
		}
		table, err := services.ParseAuctionBody(data, auctionFile.Header.Get(fiber.HeaderContentType))
		return table, "upload", err
	}

	if h.Auctions == nil {
		return models.Table{}, "", shared.NewServiceError(shared.ErrorCategoryResource, "AUCTION_INPUT_MISSING",
			"no auction file uploaded and no auction source configured", "DedupHandler", "Dedup", false, nil)
	}

	fetched, err := h.Auctions.Fetch(c.Context())
	if err != nil {
		return models.Table{}, "", err
	}
	return fetched.Table, fetched.Origin, nil
}

func readUploadedBytes(header *multipart.FileHeader) ([]byte, error) {
	file, err := header.Open()
	if err != nil {
		return nil, shared.NewServiceError(shared.ErrorCategoryValidation, "UPLOAD_UNREADABLE",
			"cannot open uploaded file", "DedupHandler", "Dedup", false, err)
	}
	defer file.Close()
	return io.ReadAll(file)
}

func readUploadedTable(header *multipart.FileHeader, encoding string) (models.Table, error) {
	data, err := readUploadedBytes(header)
	if err != nil {
		return models.Table{}, err
	}
	return services.ReadTable(bytes.NewReader(data), encoding)
}

// errorResponse maps service error categories to HTTP status codes.
func errorResponse(c *fiber.Ctx, err error) error {
	status := fiber.StatusInternalServerError
	switch {
	case shared.HasCategory(err, shared.ErrorCategoryValidation):
		status = fiber.StatusBadRequest
	case shared.HasCategory(err, shared.ErrorCategoryResource):
		status = fiber.StatusUnprocessableEntity
	case shared.HasCategory(err, shared.ErrorCategoryNetwork), shared.HasCategory(err, shared.ErrorCategoryTimeout):
		status = fiber.StatusBadGateway
	case shared.HasCategory(err, shared.ErrorCategoryDatabase):
		status = fiber.StatusServiceUnavailable
	}

	return c.Status(status).JSON(fiber.Map{
		"success": false,
		"error":   err.Error(),
	})
}
