package main

import (
	"errors"
	"filerelay/config"
	"fmt"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"net/http"
	"time"
)

const (
	msgMissingParameters = "Missing parameters"
	msgSourceNotFound    = "Source file not found or could not be accessed."
	msgTransferComplete  = "File transfer completed successfully."
)

func VerifyFunctionKeyHandle(cfg config.Config) gin.HandlerFunc {
	return func(c *gin.Context) {
		if cfg.Auth.FunctionKey == "" {
			c.Next()
			return
		}
		key := c.GetHeader("x-functions-key")
		if key == "" {
			key = c.Query("code")
		}
		if !keyVerify(cfg.Auth.FunctionKey, key) {
			c.String(http.StatusUnauthorized, "Unauthorized")
			c.Abort()
			return
		}
		c.Next()
	}
}

func ParseTransferHandle() gin.HandlerFunc {
	return func(c *gin.Context) {
		request := &TransferRequest{}
		if err := c.ShouldBindJSON(request); err != nil {
			logrus.Infoln("Invalid request body:", err)
			c.String(http.StatusBadRequest, "Invalid request body")
			c.Abort()
			return
		}
		if !request.Valid() {
			c.String(http.StatusBadRequest, msgMissingParameters)
			c.Abort()
			return
		}
		c.Set("request", request)
		c.Next()
	}
}

func TransferHandle(relay *Relay, records *RecordStore, cfg config.Config) gin.HandlerFunc {
	return func(c *gin.Context) {
		request := c.MustGet("request").(*TransferRequest)
		record := &TransferRecord{
			ID:         uuid.NewString(),
			Source:     request.Source,
			SourcePath: request.SourcePath,
			Sink:       request.Sink,
			SinkPath:   request.SinkPath,
			StartedAt:  time.Now(),
		}
		log := logrus.WithFields(logrus.Fields{
			"id":          record.ID,
			"source":      request.Source,
			"source_path": request.SourcePath,
			"sink":        request.Sink,
			"sink_path":   request.SinkPath,
		})
		c.Header("X-Transfer-Id", record.ID)

		status, message := http.StatusOK, msgTransferComplete
		result, err := relay.Copy(c.Request.Context(), request)
		if err != nil {
			status, message = transferStatus(err, cfg.ErrorDetail)
			// The record is served back over HTTP, so it gets the response
			// text; the raw error only goes to the log.
			record.Error = message
			var transferErr *TransferError
			if errors.As(err, &transferErr) {
				record.Bytes = transferErr.Bytes
			}
			log.WithField("status", status).Errorln("Error:", err)
		} else {
			record.Bytes = result.Bytes
			record.SourceETag = result.SourceETag
			log.WithField("bytes", result.Bytes).Infof("Transfer completed in %s", result.Duration)
		}
		record.StatusCode = status
		record.FinishedAt = time.Now()

		if records != nil {
			if err := records.Save(c.Request.Context(), record); err != nil {
				logrus.Errorln("Error caching transfer record", err)
			}
		}
		c.String(status, message)
	}
}

func GetTransferHandle(records *RecordStore) gin.HandlerFunc {
	return func(c *gin.Context) {
		record, err := records.Get(c.Request.Context(), c.Param("id"))
		if err != nil {
			c.JSON(http.StatusNotFound, gin.H{"error": "Transfer not found"})
			return
		}
		c.JSON(http.StatusOK, record)
	}
}

// transferStatus maps a relay error to a response. A missing object only
// means 404 on the source side; the same kind raised by the sink is a
// failed write.
func transferStatus(err error, detail bool) (int, string) {
	var providerErr *ProviderError
	if errors.As(err, &providerErr) {
		if providerErr.Role == RoleSource {
			return http.StatusNotFound, msgSourceNotFound
		}
		return http.StatusBadRequest, fmt.Sprintf("Unsupported sink: %s", providerErr.Tag)
	}
	var transferErr *TransferError
	if !errors.As(err, &transferErr) && errors.Is(err, ErrObjectNotFound) {
		return http.StatusNotFound, msgSourceNotFound
	}
	if errors.Is(err, ErrAccessDenied) {
		if !detail {
			return http.StatusForbidden, "Access denied."
		}
		return http.StatusForbidden, fmt.Sprintf("Access denied: %v", err)
	}
	if !detail {
		return http.StatusInternalServerError, "Error occurred."
	}
	return http.StatusInternalServerError, fmt.Sprintf("Error occurred: %v", err)
}

func NewRouter(cfg config.Config, relay *Relay, records *RecordStore) *gin.Engine {
	r := gin.Default()
	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	api := r.Group("/api", VerifyFunctionKeyHandle(cfg))
	api.POST("/file_transfer", ParseTransferHandle(), TransferHandle(relay, records, cfg))
	if records != nil {
		api.GET("/file_transfer/:id", GetTransferHandle(records))
	}
	return r
}
