package inference

import (
	"bytes"
	"context"
	"errors"
	"net/http"
	"sync"

	"github.com/ariebrainware/patient-portal/datasource"
)

// State is the upload state.
type State string

const (
	StateIdle      State = "idle"
	StateUploading State = "uploading"
	StateSuccess   State = "success"
	StateFailure   State = "failure"
)

// Outcome refines StateSuccess.
type Outcome string

const (
	OutcomeClassified Outcome = "classified"
	OutcomeDetected   Outcome = "detected"
)

// FailureKind refines StateFailure.
type FailureKind string

const (
	FailureNetwork    FailureKind = "network"
	FailureServer     FailureKind = "server"
	FailureValidation FailureKind = "validation"
)

// SickleCellClassID is the detection class reserved for sickle cells.
const SickleCellClassID = 3

const (
	BloodLabel = "blood"

	MsgNoImage      = "Please upload an image"
	MsgRetry        = "Failed to process the image. Please try again."
	MsgUnreachable  = "The analysis service could not be reached. Please try again later."
	MsgRejected     = "The image could not be processed. Please upload a valid image file."
	MsgAnemia       = "Anemia detected (Sickle Cells found)."
	MsgNormal       = "Normal (No Sickle Cells detected)."
	MsgInvalidImage = "Please upload a valid image."
)

var (
	// ErrNoImage is returned by Submit when no image is selected.
	ErrNoImage = errors.New(MsgNoImage)
	// ErrBusy is returned by Submit while an upload is in flight.
	ErrBusy = errors.New("an upload is already in progress")
	// ErrSuperseded is returned when a newer selection replaced the image
	// while its upload was in flight; the response was discarded.
	ErrSuperseded = errors.New("upload superseded by a newer image")
)

// Image is a selected file.
type Image struct {
	Name string
	Data []byte
}

// View is everything the UI renders for the upload flow.
// @Description Upload state and presentation
type View struct {
	State             State       `json:"state" example:"success"`
	Outcome           Outcome     `json:"outcome,omitempty" example:"detected"`
	Generation        uint64      `json:"generation"`
	FileName          string      `json:"file_name,omitempty"`
	Result            string      `json:"result,omitempty" example:"blood"`
	Confidence        *float64    `json:"confidence,omitempty"`
	UploadedImageURL  string      `json:"uploaded_image_url,omitempty"`
	AnnotatedImageURL string      `json:"annotated_image_url,omitempty"`
	Detections        []Detection `json:"detections,omitempty"`
	ShowDetection     bool        `json:"show_detection"`
	AnemiaDetected    bool        `json:"anemia_detected"`
	Message           string      `json:"message,omitempty"`
	FailureKind       FailureKind `json:"failure_kind,omitempty"`
	Error             string      `json:"error,omitempty"`
	// Detail is the upstream error text, when there was one.
	Detail string `json:"detail,omitempty"`
}

// Present applies the presentation rules to a successful response.
func Present(resp Response) View {
	v := View{
		State:            StateSuccess,
		Outcome:          OutcomeClassified,
		Result:           resp.Result,
		Confidence:       resp.Confidence,
		UploadedImageURL: resp.UploadedImageURL,
		ShowDetection:    true,
		Message:          MsgInvalidImage,
	}
	// Only a blood image carries an overlay; detections on any other label are ignored.
	if resp.Result != BloodLabel || resp.Detection == nil {
		return v
	}
	v.Outcome = OutcomeDetected
	v.AnnotatedImageURL = resp.Detection.AnnotatedImageURL
	v.Detections = resp.Detection.Detections
	if v.AnnotatedImageURL == "" {
		return v
	}
	v.Message = MsgNormal
	for _, d := range v.Detections {
		if d.ClassID == SickleCellClassID {
			v.AnemiaDetected = true
			v.Message = MsgAnemia
			break
		}
	}
	return v
}

// Fail builds the failure view for an Upload error.
func Fail(err error) View {
	v := View{State: StateFailure, Error: MsgRetry, FailureKind: FailureServer}
	var se *datasource.StatusError
	switch {
	case errors.As(err, &se):
		v.Detail = se.Message
		if se.Code >= http.StatusBadRequest && se.Code < http.StatusInternalServerError {
			v.FailureKind, v.Error = FailureValidation, MsgRejected
		}
	case errors.Is(err, datasource.ErrTransport), errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		v.FailureKind, v.Error = FailureNetwork, MsgUnreachable
	}
	return v
}

// Presenter runs the upload state machine for one user.
type Presenter struct {
	mu       sync.Mutex
	uploader Uploader
	gen      uint64
	image    *Image
	view     View
}

func NewPresenter(u Uploader) *Presenter {
	return &Presenter{uploader: u, view: View{State: StateIdle}}
}

// Select replaces the selected image, resets to idle and clears every
// previous result. It returns the new generation.
func (p *Presenter) Select(img *Image) uint64 {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.gen++
	p.image = img
	p.view = View{State: StateIdle, Generation: p.gen}
	if img != nil {
		p.view.FileName = img.Name
	}
	return p.gen
}

// View returns the current view.
func (p *Presenter) View() View {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.view
}

// Submit uploads the currently selected image.
func (p *Presenter) Submit(ctx context.Context) (View, error) {
	p.mu.Lock()
	gen := p.gen
	p.mu.Unlock()
	return p.SubmitGeneration(ctx, gen)
}

// SubmitGeneration uploads the image chosen by the Select that returned gen.
// With no image it returns ErrNoImage and leaves the state alone. When a newer
// Select has happened, before or during the upload, nothing is kept and
// ErrSuperseded is returned with the current view.
func (p *Presenter) SubmitGeneration(ctx context.Context, gen uint64) (View, error) {
	p.mu.Lock()
	if gen != p.gen {
		v := p.view
		p.mu.Unlock()
		return v, ErrSuperseded
	}
	if p.image == nil {
		v := p.view
		p.mu.Unlock()
		return v, ErrNoImage
	}
	if p.view.State == StateUploading {
		v := p.view
		p.mu.Unlock()
		return v, ErrBusy
	}
	img := p.image
	p.view = View{State: StateUploading, Generation: gen, FileName: img.Name}
	p.mu.Unlock()

	resp, err := p.uploader.Upload(ctx, img.Name, bytes.NewReader(img.Data))

	var next View
	if err != nil {
		next = Fail(err)
	} else {
		next = Present(resp)
	}
	next.Generation, next.FileName = gen, img.Name

	p.mu.Lock()
	defer p.mu.Unlock()
	if gen != p.gen {
		return p.view, ErrSuperseded
	}
	p.view = next
	return next, nil
}
