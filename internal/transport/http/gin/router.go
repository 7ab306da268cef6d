package httpgin

import (
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	"github.com/kirinyoku/parkgo/internal/domain"
	redisrepo "github.com/kirinyoku/parkgo/internal/repository/redis"
	"github.com/kirinyoku/parkgo/internal/service"
	"github.com/kirinyoku/parkgo/internal/service/facility"
)

// Options carries the optional pieces of the HTTP surface. Nil members
// disable the feature they back.
type Options struct {
	Idempotency IdempotencyStore
	Events      LotSubscriber
	Metrics     *Metrics
	// Location is the zone of client timestamps. Defaults to time.Local.
	Location *time.Location
	// ServiceName enables otelgin server spans when set.
	ServiceName string
	// Closing ends open event streams when closed. http.Server.Shutdown
	// waits for handlers but never cancels them.
	Closing <-chan struct{}
}

func NewRouter(
	svcs *service.Services,
	opts Options,
	logger *slog.Logger,
	middlewares ...gin.HandlerFunc,
) *gin.Engine {
	if opts.Location == nil {
		opts.Location = time.Local
	}

	useJSONFieldNames()

	r := gin.New()

	r.Use(gin.Recovery(), RequestIDMiddleware(), LoggingMiddleware(logger), CORS())
	if opts.ServiceName != "" {
		r.Use(otelgin.Middleware(opts.ServiceName))
	}
	if opts.Metrics != nil {
		r.Use(opts.Metrics.Middleware())
		r.GET("/metrics", gin.WrapH(opts.Metrics.Handler()))
	}
	for _, m := range middlewares {
		if m != nil {
			r.Use(m)
		}
	}

	// Swagger UI
	r.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	// health
	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	lot := r.Group("/parking_lot")
	{
		lot.POST("", handleCreateLot(svcs))
		lot.GET("", handleGetLot(svcs))
		lot.PATCH("/reset", handleResetLot(svcs))
		lot.DELETE("", handleDeleteLot(svcs))

		lot.POST("/gates", handleCreateGate(svcs))
		lot.GET("/gates/:id", handleGetGate(svcs))
		lot.POST("/slots", handleCreateSlot(svcs))

		lot.GET("/parking_records", handleListRecords(svcs, opts.Location))
		lot.GET("/fee_rules", handleGetFeeRules(svcs))
		lot.GET("/events", handleLotEvents(opts.Events, opts.Closing, logger))
	}

	vehicles := r.Group("/vehicles")
	{
		vehicles.POST("/park", handlePark(svcs, opts.Idempotency, opts.Location))
		vehicles.POST("/unpark", handleUnpark(svcs, opts.Idempotency, opts.Location))
		vehicles.GET("/:plate/parking_records", handleVehicleRecords(svcs, opts.Location))
	}

	r.GET("/archive/parking_records", handleArchivedRecords(svcs, opts.Location))

	return r
}

// --- Handlers with Swagger annotations ---

// @Summary  Create the parking lot
// @Param    req body  CreateLotRequest true "dimensions and auto-population"
// @Success  201 {object} LotResponse
// @Failure  400 {object} ErrorResponse
// @Failure  409 {object} ErrorResponse "lot already exists"
// @Router   /parking_lot [post]
func handleCreateLot(svcs *service.Services) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req CreateLotRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			validationFailed(c, err)
			return
		}

		snap, err := svcs.Facility.CreateLot(c.Request.Context(), facility.CreateLotParams{
			Width:        *req.Width,
			Height:       *req.Height,
			AutoPopulate: req.AutoPopulate,
			GateSize:     req.GateSize,
		})
		if err != nil {
			respondErr(c, err)
			return
		}

		c.JSON(http.StatusCreated, toLot(snap))
	}
}

// @Summary  Get the parking lot
// @Success  200 {object} LotResponse
// @Success  304 "not modified"
// @Failure  404 {object} ErrorResponse
// @Router   /parking_lot [get]
func handleGetLot(svcs *service.Services) gin.HandlerFunc {
	return func(c *gin.Context) {
		snap, err := svcs.Query.GetLot(c.Request.Context())
		if err != nil {
			respondErr(c, err)
			return
		}

		writeJSONWithCache(c, http.StatusOK, toLot(snap), "no-cache", true)
	}
}

// @Summary  Reset the parking lot
// @Description Frees every slot and clears the records; gates and slots stay.
// @Success  200 {object} LotResponse
// @Failure  404 {object} ErrorResponse
// @Router   /parking_lot/reset [patch]
func handleResetLot(svcs *service.Services) gin.HandlerFunc {
	return func(c *gin.Context) {
		snap, err := svcs.Facility.ResetLot(c.Request.Context())
		if err != nil {
			respondErr(c, err)
			return
		}

		c.JSON(http.StatusOK, toLot(snap))
	}
}

// @Summary  Delete the parking lot
// @Success  204
// @Failure  404 {object} ErrorResponse
// @Router   /parking_lot [delete]
func handleDeleteLot(svcs *service.Services) gin.HandlerFunc {
	return func(c *gin.Context) {
		if err := svcs.Facility.DeleteLot(c.Request.Context()); err != nil {
			respondErr(c, err)
			return
		}

		c.Status(http.StatusNoContent)
	}
}

// @Summary  Add a gate on the border
// @Param    req body  CreateGateRequest true "position"
// @Success  201 {object} GateResponse
// @Failure  404 {object} ErrorResponse
// @Failure  409 {object} ErrorResponse "position occupied"
// @Failure  422 {object} ErrorResponse "out of bounds / not on border"
// @Router   /parking_lot/gates [post]
func handleCreateGate(svcs *service.Services) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req CreateGateRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			validationFailed(c, err)
			return
		}

		gate, err := svcs.Facility.AddGate(c.Request.Context(), domain.Position{X: *req.X, Y: *req.Y})
		if err != nil {
			respondErr(c, err)
			return
		}

		c.JSON(http.StatusCreated, toGate(gate))
	}
}

// @Summary  Get a gate
// @Param    id  path  string  true  "Gate ID"
// @Success  200 {object} GateResponse
// @Failure  404 {object} ErrorResponse
// @Router   /parking_lot/gates/{id} [get]
func handleGetGate(svcs *service.Services) gin.HandlerFunc {
	return func(c *gin.Context) {
		gate, err := svcs.Query.GetGate(c.Request.Context(), c.Param("id"))
		if err != nil {
			respondErr(c, err)
			return
		}

		c.JSON(http.StatusOK, toGate(gate))
	}
}

// @Summary  Add a slot inside the border
// @Param    req body  CreateSlotRequest true "position and size"
// @Success  201 {object} SlotResponse
// @Failure  400 {object} ErrorResponse
// @Failure  404 {object} ErrorResponse
// @Failure  409 {object} ErrorResponse "position occupied"
// @Failure  422 {object} ErrorResponse "out of bounds / not interior"
// @Router   /parking_lot/slots [post]
func handleCreateSlot(svcs *service.Services) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req CreateSlotRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			validationFailed(c, err)
			return
		}

		slot, err := svcs.Facility.AddSlot(c.Request.Context(), domain.Position{X: *req.X, Y: *req.Y}, req.Size)
		if err != nil {
			respondErr(c, err)
			return
		}

		c.JSON(http.StatusCreated, toSlot(slot))
	}
}

// @Summary  Park a vehicle (idempotent)
// @Param    req body  ParkRequest true "vehicle, gate and optional time (YYYY-MM-DD HH:mm:ss)"
// @Param    Idempotency-Key header string false "replays the first response"
// @Success  201 {object} RecordResponse
// @Failure  400 {object} ErrorResponse
// @Failure  404 {object} ErrorResponse "lot or gate not found"
// @Failure  409 {object} ErrorResponse "no slot / already parked / key in progress"
// @Failure  422 {object} ErrorResponse "idempotency key reused for a different request"
// @Failure  429 {object} ErrorResponse "rate limited"
// @Router   /vehicles/park [post]
func handlePark(svcs *service.Services, idem IdempotencyStore, loc *time.Location) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req ParkRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			validationFailed(c, err)
			return
		}

		at, err := parseTimeAt(req.TimeAt, loc)
		if err != nil {
			badRequest(c, "INVALID_TIME_AT", "time_at must use the layout YYYY-MM-DD HH:mm:ss")
			return
		}

		rlKey := "park:ip:" + c.ClientIP()

		idempotent(c, idem, redisrepo.KeyIdemPark, req, func() (int, any, error) {
			sess, err := svcs.Facility.Park(c.Request.Context(), facility.ParkParams{
				Plate:  req.PlateNumber,
				Size:   req.Size,
				GateID: req.GateID,
				At:     at,
			}, rlKey)
			if err != nil {
				return 0, nil, err
			}

			return http.StatusCreated, toRecord(sess, loc), nil
		})
	}
}

// @Summary  Unpark a vehicle (idempotent)
// @Param    req body  UnparkRequest true "plate and optional time (YYYY-MM-DD HH:mm:ss)"
// @Param    Idempotency-Key header string false "replays the first response"
// @Success  200 {object} RecordResponse
// @Failure  400 {object} ErrorResponse
// @Failure  404 {object} ErrorResponse "lot not found / vehicle not parked"
// @Failure  422 {object} ErrorResponse "check-out before check-in / idempotency key reused"
// @Router   /vehicles/unpark [post]
func handleUnpark(svcs *service.Services, idem IdempotencyStore, loc *time.Location) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req UnparkRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			validationFailed(c, err)
			return
		}

		at, err := parseTimeAt(req.TimeAt, loc)
		if err != nil {
			badRequest(c, "INVALID_TIME_AT", "time_at must use the layout YYYY-MM-DD HH:mm:ss")
			return
		}

		idempotent(c, idem, redisrepo.KeyIdemUnpark, req, func() (int, any, error) {
			sess, err := svcs.Facility.Unpark(c.Request.Context(), facility.UnparkParams{
				Plate: req.PlateNumber,
				At:    at,
			})
			if err != nil {
				return 0, nil, err
			}

			return http.StatusOK, toRecord(sess, loc), nil
		})
	}
}

// @Summary  List parking records of the lot
// @Success  200 {array} RecordResponse
// @Router   /parking_lot/parking_records [get]
func handleListRecords(svcs *service.Services, loc *time.Location) gin.HandlerFunc {
	return func(c *gin.Context) {
		list, err := svcs.Query.ListRecords(c.Request.Context())
		if err != nil {
			respondErr(c, err)
			return
		}

		c.JSON(http.StatusOK, toRecords(list, loc))
	}
}

// @Summary  List parking records of a vehicle
// @Param    plate  path  string  true  "Plate number"
// @Success  200 {array} RecordResponse
// @Router   /vehicles/{plate}/parking_records [get]
func handleVehicleRecords(svcs *service.Services, loc *time.Location) gin.HandlerFunc {
	return func(c *gin.Context) {
		list, err := svcs.Query.VehicleRecords(c.Request.Context(), c.Param("plate"))
		if err != nil {
			respondErr(c, err)
			return
		}

		c.JSON(http.StatusOK, toRecords(list, loc))
	}
}

// @Summary  Get fee rules
// @Success  200 {object} domain.FeeRules
// @Router   /parking_lot/fee_rules [get]
func handleGetFeeRules(svcs *service.Services) gin.HandlerFunc {
	return func(c *gin.Context) {
		// rules are fixed for the lifetime of the process
		writeJSONWithCache(c, http.StatusOK, svcs.Query.FeeRules(c.Request.Context()), "public, max-age=300", false)
	}
}

// @Summary  Page through archived parking records
// @Param    plate  query  string  false "plate filter"
// @Param    limit  query  int     false "page size"
// @Param    offset query  int     false "offset"
// @Success  200 {array} ArchivedRecordResponse
// @Failure  400 {object} ErrorResponse
// @Failure  503 {object} ErrorResponse "archive not configured"
// @Router   /archive/parking_records [get]
func handleArchivedRecords(svcs *service.Services, loc *time.Location) gin.HandlerFunc {
	return func(c *gin.Context) {
		limit, ok := parseQueryInt(c, "limit", 0)
		if !ok {
			return
		}
		offset, ok := parseQueryInt(c, "offset", 0)
		if !ok {
			return
		}

		list, err := svcs.Query.ArchivedRecords(c.Request.Context(), c.Query("plate"), limit, offset)
		if err != nil {
			respondErr(c, err)
			return
		}

		c.JSON(http.StatusOK, toArchivedRecords(list, loc))
	}
}

// --- Helpers ---

func parseQueryInt(c *gin.Context, name string, def int) (int, bool) {
	s := c.Query(name)
	if s == "" {
		return def, true
	}

	v, err := strconv.Atoi(s)
	if err != nil {
		badRequest(c, "INVALID_PAGE_PARAM", "invalid "+name)
		return 0, false
	}

	return v, true
}
