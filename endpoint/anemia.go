package endpoint

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/ariebrainware/patient-portal/inference"
	"github.com/ariebrainware/patient-portal/middleware"
	"github.com/ariebrainware/patient-portal/model"
	"github.com/ariebrainware/patient-portal/util"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"gorm.io/datatypes"
)

const (
	// MaxUploadBytes caps the size of an uploaded smear image.
	MaxUploadBytes = 10 << 20

	defaultAnalysesLimit = 20
	maxAnalysesLimit     = 100
)

var (
	errImageTooLarge = fmt.Errorf("image exceeds %d bytes", MaxUploadBytes)
	errNotAnImage    = errors.New("file is not an image")
)

// AnemiaUploadResponse is the presenter view plus the stored analysis id.
// @Description Anemia upload result
type AnemiaUploadResponse struct {
	inference.View
	AnalysisID string `json:"analysis_id,omitempty" example:"3f1b7b0e-6c1e-4c55-9b1a-0a3e0c7e9d11"`
}

// AnalysisListResponse is a page of stored analyses.
// @Description Anemia analysis history
type AnalysisListResponse struct {
	Total    int64            `json:"total" example:"4"`
	Analyses []model.Analysis `json:"analyses"`
}

// readUpload returns the "file" form part. A missing part yields
// inference.ErrNoImage.
func readUpload(c *gin.Context) (*inference.Image, error) {
	fh, err := c.FormFile("file")
	if err != nil {
		return nil, inference.ErrNoImage
	}
	if fh.Size > MaxUploadBytes {
		return nil, errImageTooLarge
	}
	f, err := fh.Open()
	if err != nil {
		return nil, fmt.Errorf("open upload: %w", err)
	}
	defer f.Close()

	data, err := io.ReadAll(io.LimitReader(f, MaxUploadBytes+1))
	if err != nil {
		return nil, fmt.Errorf("read upload: %w", err)
	}
	if len(data) == 0 {
		return nil, inference.ErrNoImage
	}
	if len(data) > MaxUploadBytes {
		return nil, errImageTooLarge
	}
	if !strings.HasPrefix(http.DetectContentType(data), "image/") {
		return nil, errNotAnImage
	}
	return &inference.Image{Name: fh.Filename, Data: data}, nil
}

func saveAnalysis(c *gin.Context, email string, v inference.View) (string, error) {
	db := middleware.GetDB(c)
	if db == nil {
		return "", errors.New("db is nil")
	}
	detections, err := json.Marshal(v.Detections)
	if err != nil {
		return "", err
	}
	a := model.Analysis{
		UUID:              uuid.NewString(),
		Email:             email,
		FileName:          v.FileName,
		Result:            v.Result,
		ImageURL:          v.UploadedImageURL,
		AnnotatedImageURL: v.AnnotatedImageURL,
		Detections:        datatypes.JSON(detections),
		AnemiaDetected:    v.AnemiaDetected,
		Message:           v.Message,
	}
	if v.Confidence != nil {
		a.Confidence = *v.Confidence
	}
	if err := db.Create(&a).Error; err != nil {
		return "", err
	}
	return a.UUID, nil
}

// UploadAnemiaImage godoc
// @Summary      Analyse a blood smear image
// @Description  Send the image to the inference service and return what the upload panel shows
// @Tags         Anemia
// @Accept       multipart/form-data
// @Produce      json
// @Security     SessionToken
// @Param        file formData file true "Blood smear image"
// @Success      200 {object} util.APIResponse{data=AnemiaUploadResponse} "Image analysed"
// @Failure      400 {object} util.APIResponse{data=inference.View} "Missing or rejected image"
// @Failure      401 {object} util.APIResponse "Invalid or expired session"
// @Failure      409 {object} util.APIResponse{data=inference.View} "Superseded by a newer upload"
// @Failure      429 {object} util.APIResponse "Too many uploads"
// @Failure      502 {object} util.APIResponse{data=inference.View} "Inference service error"
// @Failure      503 {object} util.APIResponse{data=inference.View} "Inference service unavailable"
// @Router       /anemia/upload [post]
func UploadAnemiaImage(c *gin.Context) {
	email, digest, ok := sessionOwner(c)
	if !ok {
		return
	}
	deps, ok := getDepsOrRespond(c)
	if !ok {
		return
	}

	img, err := readUpload(c)
	switch {
	case errors.Is(err, inference.ErrNoImage):
		util.CallUserError(c, util.APIErrorParams{Msg: inference.MsgNoImage, Err: err})
		return
	case errors.Is(err, errImageTooLarge), errors.Is(err, errNotAnImage):
		util.CallUserError(c, util.APIErrorParams{Msg: inference.MsgInvalidImage, Err: err})
		return
	case err != nil:
		util.CallServerError(c, util.APIErrorParams{Msg: "Failed to read upload", Err: err})
		return
	}

	p := deps.Uploads.Get(digest)
	gen := p.Select(img)
	view, err := p.SubmitGeneration(c.Request.Context(), gen)
	if errors.Is(err, inference.ErrSuperseded) || errors.Is(err, inference.ErrBusy) {
		util.CallConflict(c, util.APIErrorParams{Msg: "A newer upload replaced this one", Err: err, Data: view})
		return
	}
	if err != nil {
		util.CallServerError(c, util.APIErrorParams{Msg: inference.MsgRetry, Err: err, Data: view})
		return
	}

	if view.State == inference.StateFailure {
		params := util.APIErrorParams{Msg: view.Error, Err: errors.New(view.Detail), Data: view}
		if view.Detail == "" {
			params.Err = errors.New(string(view.FailureKind))
		}
		switch view.FailureKind {
		case inference.FailureValidation:
			util.CallUserError(c, params)
			return
		case inference.FailureNetwork:
			util.CallServiceUnavailable(c, params)
		default:
			util.CallBadGateway(c, params)
		}
		util.LogUpstreamFailure(util.UpstreamFailureParams{
			RequestID: middleware.GetRequestID(c),
			Email:     email,
			IP:        c.ClientIP(),
			Service:   "inference",
			Operation: "POST /upload",
			Err:       params.Err,
		})
		return
	}

	resp := AnemiaUploadResponse{View: view}
	id, err := saveAnalysis(c, email, view)
	if err != nil {
		util.Logger().Error().Err(err).Str("request_id", middleware.GetRequestID(c)).Msg("store analysis failed")
	} else {
		resp.AnalysisID = id
		util.LogAnalysisCompleted(util.AnalysisParams{
			RequestID:      middleware.GetRequestID(c),
			Email:          email,
			IP:             c.ClientIP(),
			AnalysisID:     id,
			AnemiaDetected: view.AnemiaDetected,
			Detections:     len(view.Detections),
		})
	}
	util.CallSuccessOK(c, util.APISuccessParams{Msg: "Image analysed", Data: resp})
}

// GetAnemiaState godoc
// @Summary      Current upload state
// @Description  Return the upload panel view for the session, idle when nothing was uploaded
// @Tags         Anemia
// @Produce      json
// @Security     SessionToken
// @Success      200 {object} util.APIResponse{data=inference.View} "Upload state"
// @Failure      401 {object} util.APIResponse "Invalid or expired session"
// @Router       /anemia/state [get]
func GetAnemiaState(c *gin.Context) {
	_, digest, ok := sessionOwner(c)
	if !ok {
		return
	}
	deps, ok := getDepsOrRespond(c)
	if !ok {
		return
	}
	view := inference.View{State: inference.StateIdle}
	if p, ok := deps.Uploads.Peek(digest); ok {
		view = p.View()
	}
	util.CallSuccessOK(c, util.APISuccessParams{Msg: "Upload state", Data: view})
}

// ListAnalyses godoc
// @Summary      Anemia analysis history
// @Description  List the session user's stored analyses, newest first
// @Tags         Anemia
// @Produce      json
// @Security     SessionToken
// @Param        limit query int false "Page size (default 20, max 100)"
// @Param        offset query int false "Offset for pagination"
// @Success      200 {object} util.APIResponse{data=AnalysisListResponse} "Analyses retrieved"
// @Failure      401 {object} util.APIResponse "Invalid or expired session"
// @Failure      500 {object} util.APIResponse "Server error"
// @Router       /anemia/analyses [get]
func ListAnalyses(c *gin.Context) {
	email, _, ok := sessionOwner(c)
	if !ok {
		return
	}
	db, ok := getDBOrRespond(c)
	if !ok {
		return
	}

	limit, _ := strconv.Atoi(c.Query("limit"))
	offset, _ := strconv.Atoi(c.Query("offset"))
	if limit <= 0 {
		limit = defaultAnalysesLimit
	}
	if limit > maxAnalysesLimit {
		limit = maxAnalysesLimit
	}

	analyses, total, err := model.ListAnalysesByEmail(db, email, limit, offset)
	if err != nil {
		util.CallServerError(c, util.APIErrorParams{Msg: "Failed to retrieve analyses", Err: err})
		return
	}
	util.CallSuccessOK(c, util.APISuccessParams{
		Msg:  "Analyses retrieved",
		Data: AnalysisListResponse{Total: total, Analyses: analyses},
	})
}
