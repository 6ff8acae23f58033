package controller

import (
	"io"
	"net/http"
	"strconv"
	"sync"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	deviceHandler "github.com/william-ls-liu/evaluating-psi/internal/device/handler"
	"github.com/william-ls-liu/evaluating-psi/internal/platform"
)

// Live displays run well below the acquisition rate; every strideth frame is
// plenty for a plot.
const defaultStride = 50

type Stream interface {
	Live(ctx *gin.Context)
}

var (
	stream Stream
	once   sync.Once
)

type StreamController struct {
	Sampler deviceHandler.Sampler
}

func NewController() Stream {
	if stream == nil {
		once.Do(func() {
			stream = &StreamController{
				Sampler: deviceHandler.Instance(),
			}
		})
	}
	return stream
}

// LiveFrame is one server-sent event: the raw channels plus the derived
// center of pressure when the platform is loaded.
type LiveFrame struct {
	Channels platform.Frame `json:"channels"`
	CoPx     *float64       `json:"cop_x,omitempty"`
	CoPy     *float64       `json:"cop_y,omitempty"`
}

// Live streams decimated frames to the client as server-sent events until
// the client disconnects.
func (s *StreamController) Live(ctx *gin.Context) {
	stride := defaultStride
	if raw := ctx.Query("stride"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 1 {
			ctx.JSON(http.StatusBadRequest, gin.H{"error": "stride must be a positive integer"})
			return
		}
		stride = parsed
	}

	tag := "sse-" + uuid.NewString()
	ch, err := s.Sampler.Worker().Subscribe(tag)
	if err != nil {
		ctx.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	defer s.Sampler.Worker().Unsubscribe(tag)

	log.Info().Msgf("Live stream %s connected (stride=%d)", tag, stride)
	defer log.Info().Msgf("Live stream %s disconnected", tag)

	ctx.Header("Content-Type", "text/event-stream")
	ctx.Header("Cache-Control", "no-cache")

	count := 0
	ctx.Stream(func(w io.Writer) bool {
		select {
		case <-ctx.Request.Context().Done():
			return false
		case frame, ok := <-ch:
			if !ok {
				return false
			}
			count++
			if count%stride != 0 {
				return true
			}
			ctx.SSEvent("frame", liveFrame(frame))
			return true
		}
	})
}

func liveFrame(frame platform.Frame) LiveFrame {
	out := LiveFrame{Channels: frame}
	copX, copY, ok := platform.CenterOfPressure(
		frame[platform.FX], frame[platform.FY], frame[platform.FZ],
		frame[platform.MX], frame[platform.MY],
	)
	if ok {
		out.CoPx = &copX
		out.CoPy = &copY
	}
	return out
}
