package handlers

import (
	"errors"
	"log"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/scribestack/transcription-service/internal/common"
	"github.com/scribestack/transcription-service/internal/transcription"
	"github.com/scribestack/transcription-service/internal/upload"
)

// UploadJob accepts a multipart audio upload, records a PENDING job, and
// schedules background transcription. Processing options come in as query
// parameters, mirroring the upload clients this replaces.
func (h *Handler) UploadJob(c *gin.Context) {
	fileHeader, err := c.FormFile("file")
	if err != nil {
		common.Fail(c, http.StatusBadRequest, 10001, "no file provided")
		return
	}

	if err := h.Uploads.Validate(fileHeader.Filename, fileHeader.Size); err != nil {
		switch {
		case errors.Is(err, upload.ErrUnsupportedFormat), errors.Is(err, upload.ErrNoFilename):
			common.Fail(c, http.StatusBadRequest, 10002, err.Error())
		case errors.Is(err, upload.ErrFileTooLarge):
			common.Fail(c, http.StatusRequestEntityTooLarge, 10003, err.Error())
		default:
			common.Fail(c, http.StatusBadRequest, 10002, err.Error())
		}
		return
	}

	modelSize := c.DefaultQuery("model_size", h.Cfg.DefaultModelSize)
	if !h.modelSizeAllowed(modelSize) {
		common.Fail(c, http.StatusBadRequest, 10004, "invalid model_size: "+modelSize)
		return
	}

	diarize, err := parseBoolQuery(c, "enable_diarization", true)
	if err != nil {
		common.Fail(c, http.StatusBadRequest, 10005, "invalid enable_diarization")
		return
	}
	align, err := parseBoolQuery(c, "enable_alignment", true)
	if err != nil {
		common.Fail(c, http.StatusBadRequest, 10006, "invalid enable_alignment")
		return
	}

	var language *string
	if lang := c.Query("language"); lang != "" {
		language = &lang
	}

	jobID := uuid.NewString()

	src, err := fileHeader.Open()
	if err != nil {
		common.Fail(c, http.StatusInternalServerError, 50001, "failed to read upload")
		return
	}
	defer src.Close()

	audioPath, err := h.Uploads.Save(jobID, fileHeader.Filename, src)
	if err != nil {
		log.Printf("upload save failed job=%s filename=%s err=%v", jobID, fileHeader.Filename, err)
		common.Fail(c, http.StatusInternalServerError, 50002, "failed to store upload")
		return
	}

	_, err = h.Jobs.CreateJob(c.Request.Context(), jobID, fileHeader.Filename, audioPath, transcription.Options{
		ModelSize:         modelSize,
		EnableDiarization: diarize,
		EnableAlignment:   align,
		Language:          language,
	})
	if err != nil {
		_ = h.Uploads.Remove(audioPath)
		if errors.Is(err, transcription.ErrDuplicateJob) {
			common.Fail(c, http.StatusConflict, 40901, "job already exists")
			return
		}
		log.Printf("create job failed job=%s err=%v", jobID, err)
		common.Fail(c, http.StatusInternalServerError, 50003, "failed to create job")
		return
	}

	if err := h.Jobs.Submit(c.Request.Context(), jobID); err != nil {
		log.Printf("submit failed job=%s err=%v", jobID, err)
		common.Fail(c, http.StatusInternalServerError, 50004, "failed to schedule job")
		return
	}

	view, err := h.Query.GetJob(c.Request.Context(), jobID)
	if err != nil {
		common.Fail(c, http.StatusInternalServerError, 50005, "failed to load job")
		return
	}

	log.Printf("job created job=%s filename=%s model=%s size=%d",
		jobID, fileHeader.Filename, modelSize, fileHeader.Size)
	common.OK(c, http.StatusCreated, view)
}

func (h *Handler) GetJob(c *gin.Context) {
	jobID := c.Param("job_id")
	if jobID == "" {
		common.Fail(c, http.StatusBadRequest, 10010, "job_id required")
		return
	}

	view, err := h.Query.GetJob(c.Request.Context(), jobID)
	if err != nil {
		if errors.Is(err, transcription.ErrNotFound) {
			common.Fail(c, http.StatusNotFound, 40401, "job not found")
			return
		}
		common.Fail(c, http.StatusInternalServerError, 50010, "internal error")
		return
	}
	common.OK(c, http.StatusOK, view)
}

func (h *Handler) ListJobs(c *gin.Context) {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	perPage, _ := strconv.Atoi(c.DefaultQuery("per_page", "10"))

	var status *transcription.Status
	if s := c.Query("status"); s != "" {
		parsed, ok := transcription.ParseStatus(s)
		if !ok {
			common.Fail(c, http.StatusBadRequest, 10011, "invalid status filter: "+s)
			return
		}
		status = &parsed
	}

	result, err := h.Query.ListJobs(c.Request.Context(), page, perPage, status)
	if err != nil {
		common.Fail(c, http.StatusInternalServerError, 50011, "internal error")
		return
	}
	common.OK(c, http.StatusOK, result)
}

func (h *Handler) RetryJob(c *gin.Context) {
	jobID := c.Param("job_id")

	_, err := h.Jobs.Retry(c.Request.Context(), jobID)
	if err != nil {
		var invalid *transcription.InvalidTransitionError
		switch {
		case errors.Is(err, transcription.ErrNotFound):
			common.Fail(c, http.StatusNotFound, 40401, "job not found")
		case errors.As(err, &invalid):
			common.Fail(c, http.StatusBadRequest, 40001, invalid.Error())
		case errors.Is(err, transcription.ErrAlreadySubmitted):
			common.Fail(c, http.StatusConflict, 40902, "job already submitted")
		default:
			log.Printf("retry failed job=%s err=%v", jobID, err)
			common.Fail(c, http.StatusInternalServerError, 50012, "internal error")
		}
		return
	}

	view, err := h.Query.GetJob(c.Request.Context(), jobID)
	if err != nil {
		common.Fail(c, http.StatusInternalServerError, 50013, "internal error")
		return
	}

	log.Printf("job retry initiated job=%s", jobID)
	common.OK(c, http.StatusOK, view)
}

func (h *Handler) CancelJob(c *gin.Context) {
	jobID := c.Param("job_id")

	if err := h.Jobs.Cancel(c.Request.Context(), jobID); err != nil {
		var invalid *transcription.InvalidTransitionError
		switch {
		case errors.Is(err, transcription.ErrNotFound):
			common.Fail(c, http.StatusNotFound, 40401, "job not found")
		case errors.As(err, &invalid):
			common.Fail(c, http.StatusBadRequest, 40002, invalid.Error())
		default:
			log.Printf("cancel failed job=%s err=%v", jobID, err)
			common.Fail(c, http.StatusInternalServerError, 50014, "internal error")
		}
		return
	}

	log.Printf("job cancelled job=%s", jobID)
	common.OK(c, http.StatusOK, gin.H{"job_id": jobID, "status": transcription.StatusCancelled})
}

func (h *Handler) modelSizeAllowed(size string) bool {
	for _, s := range h.Cfg.AllowedModelSizes {
		if s == size {
			return true
		}
	}
	return false
}

func parseBoolQuery(c *gin.Context, name string, def bool) (bool, error) {
	v := c.Query(name)
	if v == "" {
		return def, nil
	}
	return strconv.ParseBool(v)
}
