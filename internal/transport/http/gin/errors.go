package httpgin

import (
	"errors"
	"fmt"
	"math"
	"net/http"
	"reflect"
	"strconv"
	"strings"
	"sync"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"

	"github.com/kirinyoku/parkgo/internal/service/facility"
	"github.com/kirinyoku/parkgo/internal/service/query"
)

type errorKind struct {
	err    error
	status int
	code   string
}

var errorKinds = []errorKind{
	{facility.ErrInvalidDimensions, http.StatusBadRequest, "INVALID_DIMENSIONS"},
	{facility.ErrInvalidGateSize, http.StatusBadRequest, "INVALID_GATE_SIZE"},
	{facility.ErrInvalidVehicleSize, http.StatusBadRequest, "INVALID_VEHICLE_SIZE"},
	{facility.ErrInvalidPlate, http.StatusBadRequest, "INVALID_PLATE"},
	{facility.ErrLotAlreadyExists, http.StatusConflict, "LOT_ALREADY_EXISTS"},
	{facility.ErrLotNotFound, http.StatusNotFound, "LOT_NOT_FOUND"},
	{facility.ErrOutOfBounds, http.StatusUnprocessableEntity, "OUT_OF_BOUNDS"},
	{facility.ErrNotOnBorder, http.StatusUnprocessableEntity, "NOT_ON_BORDER"},
	{facility.ErrNotInterior, http.StatusUnprocessableEntity, "NOT_INTERIOR"},
	{facility.ErrPositionOccupied, http.StatusConflict, "POSITION_OCCUPIED"},
	{facility.ErrGateNotFound, http.StatusNotFound, "GATE_NOT_FOUND"},
	{facility.ErrNoAvailableSlot, http.StatusConflict, "NO_AVAILABLE_SLOT"},
	{facility.ErrVehicleAlreadyParked, http.StatusConflict, "VEHICLE_ALREADY_PARKED"},
	{facility.ErrVehicleNotParked, http.StatusNotFound, "VEHICLE_NOT_PARKED"},
	{facility.ErrInvalidTimeRange, http.StatusUnprocessableEntity, "INVALID_TIME_RANGE"},
	{facility.ErrRateLimited, http.StatusTooManyRequests, "RATE_LIMITED"},

	{query.ErrLotNotFound, http.StatusNotFound, "LOT_NOT_FOUND"},
	{query.ErrGateNotFound, http.StatusNotFound, "GATE_NOT_FOUND"},
	{query.ErrInvalidPageParam, http.StatusBadRequest, "INVALID_PAGE_PARAM"},
	{query.ErrArchiveDisabled, http.StatusServiceUnavailable, "ARCHIVE_DISABLED"},
}

func respondErr(c *gin.Context, err error) {
	if err == nil {
		c.Status(http.StatusNoContent)
		return
	}

	var rl facility.RateLimitedError
	if errors.As(err, &rl) {
		secs := int(math.Ceil(rl.RetryAfter.Seconds()))
		c.Header("Retry-After", strconv.Itoa(max(secs, 1)))
	}

	for _, k := range errorKinds {
		if errors.Is(err, k.err) {
			c.JSON(k.status, ErrorResponse{Code: k.code, Message: k.err.Error()})
			return
		}
	}

	_ = c.Error(err)
	c.JSON(http.StatusInternalServerError, ErrorResponse{Code: "INTERNAL", Message: "internal error"})
}

func badRequest(c *gin.Context, code, msg string) {
	c.JSON(http.StatusBadRequest, ErrorResponse{Code: code, Message: msg})
}

// validationFailed renders a binding error as a field-keyed error map.
func validationFailed(c *gin.Context, err error) {
	var ve validator.ValidationErrors
	if !errors.As(err, &ve) {
		badRequest(c, "VALIDATION_FAILED", "malformed request body")
		return
	}

	fields := make(map[string][]string, len(ve))
	for _, fe := range ve {
		fields[fe.Field()] = append(fields[fe.Field()], describe(fe))
	}

	c.JSON(http.StatusBadRequest, ErrorResponse{
		Code:    "VALIDATION_FAILED",
		Message: "request validation failed",
		Errors:  fields,
	})
}

func describe(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "max":
		return fmt.Sprintf("must be at most %s characters", fe.Param())
	case "min":
		return fmt.Sprintf("must be at least %s", fe.Param())
	default:
		return fmt.Sprintf("failed %q validation", fe.Tag())
	}
}

var jsonNamesOnce sync.Once

// useJSONFieldNames makes validation errors report fields by their JSON name.
func useJSONFieldNames() {
	jsonNamesOnce.Do(func() {
		v, ok := binding.Validator.Engine().(*validator.Validate)
		if !ok {
			return
		}

		v.RegisterTagNameFunc(func(f reflect.StructField) string {
			name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
			if name == "-" {
				return ""
			}
			if name == "" {
				return f.Name
			}
			return name
		})
	})
}
