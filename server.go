package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"bitbucket.org/mmdatafocus/bakery_backend/config"
	"bitbucket.org/mmdatafocus/bakery_backend/models"
	"bitbucket.org/mmdatafocus/bakery_backend/utils"
	"bitbucket.org/mmdatafocus/bakery_backend/workflow"
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel"
)

const defaultPort = "8080"

var tracer = otel.Tracer("bakery-distribution")

// requestContextMiddleware copies caller identity headers into the request
// context and assigns a correlation id. The identity headers are written by
// the gateway in front of this service; this middleware stands in for a
// session layer.
func requestContextMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx := c.Request.Context()

		if businessId := strings.TrimSpace(c.GetHeader("X-Business-Id")); businessId != "" {
			ctx = utils.SetBusinessIdInContext(ctx, businessId)
		}
		if userId, err := strconv.Atoi(c.GetHeader("X-User-Id")); err == nil {
			ctx = utils.SetUserIdInContext(ctx, userId)
		}
		if userName := strings.TrimSpace(c.GetHeader("X-User-Name")); userName != "" {
			ctx = utils.SetUserNameInContext(ctx, userName)
		}
		if branchId, err := strconv.Atoi(c.GetHeader("X-Branch-Id")); err == nil {
			ctx = utils.SetBranchIdInContext(ctx, branchId)
		}
		ctx = utils.SetIsAdminInContext(ctx, strings.EqualFold(c.GetHeader("X-Admin"), "true"))

		correlationId := strings.TrimSpace(c.GetHeader("X-Correlation-Id"))
		if correlationId == "" {
			correlationId = uuid.NewString()
		}
		ctx = utils.SetCorrelationIdInContext(ctx, correlationId)
		c.Header("X-Correlation-Id", correlationId)

		c.Request = c.Request.WithContext(ctx)
		c.Next()
	}
}

func requireAdmin() gin.HandlerFunc {
	return func(c *gin.Context) {
		isAdmin, ok := utils.GetIsAdminFromContext(c.Request.Context())
		if !ok || !isAdmin {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "admin only"})
			return
		}
		c.Next()
	}
}

// respondBindError answers a failed JSON bind, surfacing field-level
// validation tags when the binding library produced them.
func respondBindError(c *gin.Context, err error) {
	var validationErrors validator.ValidationErrors
	if errors.As(err, &validationErrors) {
		c.JSON(http.StatusBadRequest, gin.H{"errors": utils.ProcessValidationErrors(err)})
		return
	}
	c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
}

// respondError maps domain errors onto HTTP statuses. Lost status races and
// stock shortfalls are conflicts, not bad requests: the client state is just
// out of date.
func respondError(c *gin.Context, err error) {
	var insufficientStock *models.InsufficientStockError
	var missingFactory *models.MissingFactorySelectionError
	var unroutable *models.UnroutableCategoryError

	switch {
	case errors.Is(err, utils.ErrorRecordNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	case errors.Is(err, models.ErrInvalidTransition):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	case errors.As(err, &insufficientStock):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	case errors.As(err, &missingFactory),
		errors.Is(err, models.ErrEmptyCart),
		errors.Is(err, models.ErrAmbiguousFactoryChoice):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case errors.As(err, &unroutable):
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error()})
	default:
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	}
}

func createOrderHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, span := tracer.Start(c.Request.Context(), "createOrder")
		defer span.End()

		var input models.NewOrder
		if err := c.ShouldBindJSON(&input); err != nil {
			respondBindError(c, err)
			return
		}
		order, err := models.CreateOrder(ctx, &input)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusCreated, order)
	}
}

func getOrderHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		id, err := strconv.Atoi(c.Param("id"))
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid id"})
			return
		}
		order, err := models.GetOrder(c.Request.Context(), id)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, order)
	}
}

func getOrdersHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		var outletId *int
		if v, err := strconv.Atoi(c.Query("outlet_id")); err == nil {
			outletId = &v
		}
		dateFrom := parseDateQuery(c.Query("date_from"))
		dateTo := parseDateQuery(c.Query("date_to"))
		orders, err := models.GetOrders(c.Request.Context(), outletId, dateFrom, dateTo)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, orders)
	}
}

func parseDateQuery(value string) *time.Time {
	if strings.TrimSpace(value) == "" {
		return nil
	}
	// date-only filters are day-granular in the business timezone
	if t, err := time.Parse("2006-01-02", value); err == nil {
		if d, derr := utils.ConvertToDate(t, ""); derr == nil {
			return &d
		}
		return &t
	}
	if t, err := time.Parse(time.RFC3339, value); err == nil {
		return &t
	}
	return nil
}

func getSubOrdersHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		filter := models.SubOrderFilter{
			DateFrom: parseDateQuery(c.Query("date_from")),
			DateTo:   parseDateQuery(c.Query("date_to")),
		}
		if v, err := strconv.Atoi(c.Query("factory_id")); err == nil {
			filter.FactoryId = v
		}
		if v, err := strconv.Atoi(c.Query("branch_id")); err == nil {
			filter.BranchId = v
		}
		if v, err := strconv.Atoi(c.Query("outlet_id")); err == nil {
			filter.OutletId = v
		}
		if s := strings.TrimSpace(c.Query("status")); s != "" {
			status := models.SubOrderStatus(s)
			if status.Rank() < 0 && status != models.SubOrderStatusCancelled {
				c.JSON(http.StatusBadRequest, gin.H{"error": "invalid status"})
				return
			}
			filter.Status = &status
		}
		subOrders, err := models.GetSubOrders(c.Request.Context(), filter)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, subOrders)
	}
}

func getSubOrderHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		id, err := strconv.Atoi(c.Param("id"))
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid id"})
			return
		}
		subOrder, err := models.GetSubOrder(c.Request.Context(), id)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, subOrder)
	}
}

func updateSubOrderStatusHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, span := tracer.Start(c.Request.Context(), "updateSubOrderStatus")
		defer span.End()

		id, err := strconv.Atoi(c.Param("id"))
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid id"})
			return
		}
		var input models.UpdateSubOrderStatusInput
		if err := c.ShouldBindJSON(&input); err != nil {
			respondBindError(c, err)
			return
		}
		subOrder, err := workflow.AdvanceSubOrderStatus(ctx, id, &input)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, subOrder)
	}
}

func exportPackingListHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		factoryId, err := strconv.Atoi(c.Query("factory_id"))
		if err != nil || factoryId <= 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "factory_id is required"})
			return
		}
		file, err := models.ExportPackingList(c.Request.Context(), factoryId,
			parseDateQuery(c.Query("date_from")), parseDateQuery(c.Query("date_to")))
		if err != nil {
			respondError(c, err)
			return
		}
		c.Header("Content-Disposition", `attachment; filename="packing-list.xlsx"`)
		c.Header("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
		if err := file.Write(c.Writer); err != nil {
			config.LogError(config.GetLogger(), "server.go", "exportPackingListHandler", "write xlsx", factoryId, err)
		}
	}
}

func getProductsHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		name := utils.NilIfEmpty(strings.TrimSpace(c.Query("name")))
		var category *models.ProductCategory
		if v := strings.TrimSpace(c.Query("category")); v != "" {
			cat := models.ProductCategory(v)
			category = &cat
		}
		products, err := models.GetProducts(c.Request.Context(), name, category)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, products)
	}
}

func createProductHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		var input models.NewProduct
		if err := c.ShouldBindJSON(&input); err != nil {
			respondBindError(c, err)
			return
		}
		product, err := models.CreateProduct(c.Request.Context(), &input)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusCreated, product)
	}
}

func updateProductHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		id, err := strconv.Atoi(c.Param("id"))
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid id"})
			return
		}
		var input models.NewProduct
		if err := c.ShouldBindJSON(&input); err != nil {
			respondBindError(c, err)
			return
		}
		product, err := models.UpdateProduct(c.Request.Context(), id, &input)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, product)
	}
}

func deleteProductHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		id, err := strconv.Atoi(c.Param("id"))
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid id"})
			return
		}
		product, err := models.DeleteProduct(c.Request.Context(), id)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, product)
	}
}

type restockRequest struct {
	Qty string `json:"qty" binding:"required"`
}

func restockProductHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		id, err := strconv.Atoi(c.Param("id"))
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid id"})
			return
		}
		var req restockRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			respondBindError(c, err)
			return
		}
		qty, err := utils.ParseDecimal(req.Qty)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid qty"})
			return
		}
		product, err := models.RestockProduct(c.Request.Context(), id, qty)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, product)
	}
}

func getFactoriesHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		name := utils.NilIfEmpty(strings.TrimSpace(c.Query("name")))
		factories, err := models.GetFactories(c.Request.Context(), name)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, factories)
	}
}

func createFactoryHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		var input models.NewFactory
		if err := c.ShouldBindJSON(&input); err != nil {
			respondBindError(c, err)
			return
		}
		factory, err := models.CreateFactory(c.Request.Context(), &input)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusCreated, factory)
	}
}

func updateFactoryHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		id, err := strconv.Atoi(c.Param("id"))
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid id"})
			return
		}
		var input models.NewFactory
		if err := c.ShouldBindJSON(&input); err != nil {
			respondBindError(c, err)
			return
		}
		factory, err := models.UpdateFactory(c.Request.Context(), id, &input)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, factory)
	}
}

func getFactoryBranchesHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		id, err := strconv.Atoi(c.Param("id"))
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid id"})
			return
		}
		branches, err := models.BranchesForFactory(c.Request.Context(), id)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, branches)
	}
}

func factoriesForCategoryHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		category := models.ProductCategory(strings.TrimSpace(c.Query("category")))
		if category == "" {
			c.JSON(http.StatusBadRequest, gin.H{"error": "category is required"})
			return
		}
		factories, err := models.FactoriesForCategory(c.Request.Context(), category)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, factories)
	}
}

func createBranchHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		var input models.NewBranch
		if err := c.ShouldBindJSON(&input); err != nil {
			respondBindError(c, err)
			return
		}
		branch, err := models.CreateBranch(c.Request.Context(), &input)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusCreated, branch)
	}
}

func createOutletHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		var input models.NewOutlet
		if err := c.ShouldBindJSON(&input); err != nil {
			respondBindError(c, err)
			return
		}
		outlet, err := models.CreateOutlet(c.Request.Context(), &input)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusCreated, outlet)
	}
}

func getOutletsHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		name := utils.NilIfEmpty(strings.TrimSpace(c.Query("name")))
		outlets, err := models.GetOutlets(c.Request.Context(), name)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, outlets)
	}
}

func getProductHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		id, err := strconv.Atoi(c.Param("id"))
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid id"})
			return
		}
		product, err := models.GetProduct(c.Request.Context(), id)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, product)
	}
}

func getFactoryHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		id, err := strconv.Atoi(c.Param("id"))
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid id"})
			return
		}
		factory, err := models.GetFactory(c.Request.Context(), id)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, factory)
	}
}

func getBranchHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		id, err := strconv.Atoi(c.Param("id"))
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid id"})
			return
		}
		branch, err := models.GetBranch(c.Request.Context(), id)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, branch)
	}
}

func getOutletHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		id, err := strconv.Atoi(c.Param("id"))
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid id"})
			return
		}
		outlet, err := models.GetOutlet(c.Request.Context(), id)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, outlet)
	}
}

func getSubOrderTransitionsHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		id, err := strconv.Atoi(c.Param("id"))
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid id"})
			return
		}
		transitions, err := models.GetSubOrderTransitions(c.Request.Context(), id)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, transitions)
	}
}

func getBranchesHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		name := utils.NilIfEmpty(strings.TrimSpace(c.Query("name")))
		branches, err := models.GetBranches(c.Request.Context(), name)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, branches)
	}
}

func updateBranchHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		id, err := strconv.Atoi(c.Param("id"))
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid id"})
			return
		}
		var input models.NewBranch
		if err := c.ShouldBindJSON(&input); err != nil {
			respondBindError(c, err)
			return
		}
		branch, err := models.UpdateBranch(c.Request.Context(), id, &input)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, branch)
	}
}

func deleteBranchHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		id, err := strconv.Atoi(c.Param("id"))
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid id"})
			return
		}
		branch, err := models.DeleteBranch(c.Request.Context(), id)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, branch)
	}
}

func updateOutletHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		id, err := strconv.Atoi(c.Param("id"))
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid id"})
			return
		}
		var input models.NewOutlet
		if err := c.ShouldBindJSON(&input); err != nil {
			respondBindError(c, err)
			return
		}
		outlet, err := models.UpdateOutlet(c.Request.Context(), id, &input)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, outlet)
	}
}

type toggleActiveRequest struct {
	IsActive *bool `json:"is_active" binding:"required"`
}

// toggleActiveHandler serves the activate/deactivate endpoints shared by the
// directory resources.
func toggleActiveHandler[T any](toggle func(ctx context.Context, id int, isActive bool) (*T, error)) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, err := strconv.Atoi(c.Param("id"))
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid id"})
			return
		}
		var req toggleActiveRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			respondBindError(c, err)
			return
		}
		resource, err := toggle(c.Request.Context(), id, *req.IsActive)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, resource)
	}
}

func defaultFactoryForCategoryHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		category := models.ProductCategory(strings.TrimSpace(c.Query("category")))
		if category == "" {
			c.JSON(http.StatusBadRequest, gin.H{"error": "category is required"})
			return
		}
		factory, err := models.DefaultFactoryForCategory(c.Request.Context(), category)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, factory)
	}
}

type outboxReplayRequest struct {
	BusinessId string `json:"business_id"`
	RecordId   int    `json:"record_id"`
}

// outboxReplayHandler requeues a DEAD/FAILED outbox row for publishing.
func outboxReplayHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		var req outboxReplayRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			respondBindError(c, err)
			return
		}
		if req.BusinessId == "" || req.RecordId <= 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "business_id and record_id are required"})
			return
		}

		db := config.GetDB()
		if db == nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"error": "db is nil"})
			return
		}
		now := time.Now().UTC()
		if err := db.WithContext(c.Request.Context()).
			Model(&models.OrderEventRecord{}).
			Where("id = ? AND business_id = ?", req.RecordId, req.BusinessId).
			Updates(map[string]interface{}{
				"publish_status":     models.OutboxPublishStatusFailed,
				"next_attempt_at":    &now,
				"locked_at":          nil,
				"locked_by":          nil,
				"last_publish_error": nil,
			}).Error; err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}

		c.JSON(http.StatusOK, gin.H{
			"business_id":     req.BusinessId,
			"record_id":       req.RecordId,
			"publish_status":  models.OutboxPublishStatusFailed,
			"next_attempt_at": now.Format(time.RFC3339Nano),
		})
	}
}

// cacheClearHandler drops the whole redis cache. Ops hatch for when cached
// directory data goes stale after a manual DB fix.
func cacheClearHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		if err := config.ClearRedis(c.Request.Context()); err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, gin.H{"cleared": true})
	}
}

// customErrorLogger is a custom Gin middleware that logs only errors
func customErrorLogger(logger *logrus.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		// Only log when there are errors
		if len(c.Errors) > 0 {
			logger.Error(c.Errors.String())
		}
	}
}

func splitAndTrim(csv string) []string {
	if strings.TrimSpace(csv) == "" {
		return nil
	}
	parts := strings.Split(csv, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}

func main() {
	port := os.Getenv("PORT")
	if port == "" {
		port = defaultPort
	}
	logger := config.GetLogger()

	sigCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	r := gin.New()
	r.Use(func(c *gin.Context) {
		// Always allow Cloud Run startup probe.
		if c.Request.URL.Path == "/health" {
			c.Status(http.StatusNoContent)
			c.Abort()
			return
		}
		// Gate critical endpoints on dependency readiness.
		if config.GetDB() == nil || config.GetRedisDB() == nil {
			c.AbortWithStatus(http.StatusServiceUnavailable)
			return
		}
		c.Next()
	})

	r.GET("/health", func(c *gin.Context) { c.Status(http.StatusNoContent) })

	corsConfig := cors.DefaultConfig()
	// Production-safe CORS:
	// - In production, require explicit allowlist via CORS_ALLOWED_ORIGINS (comma-separated).
	// - In non-production, allow all (developer convenience).
	allowedOrigins := strings.TrimSpace(os.Getenv("CORS_ALLOWED_ORIGINS"))
	if strings.EqualFold(strings.TrimSpace(os.Getenv("GO_ENV")), "production") {
		if allowedOrigins == "" {
			// Safer default: deny all if not configured in production.
			corsConfig.AllowOrigins = []string{}
		} else {
			corsConfig.AllowOrigins = splitAndTrim(allowedOrigins)
		}
	} else {
		corsConfig.AllowAllOrigins = true
	}
	corsConfig.AddAllowMethods("GET", "POST", "PUT", "DELETE", "OPTIONS")
	corsConfig.AddAllowHeaders("Origin", "Content-Type", "Authorization",
		"X-Business-Id", "X-User-Id", "X-User-Name", "X-Branch-Id", "X-Admin", "X-Correlation-Id")
	corsConfig.AddExposeHeaders("Content-Length", "X-Correlation-Id")
	corsConfig.AllowCredentials = true

	r.Use(cors.New(corsConfig))
	r.Use(requestContextMiddleware())
	r.Use(customErrorLogger(logger))
	r.Use(gin.Recovery())

	api := r.Group("/api")
	{
		api.POST("/orders", createOrderHandler())
		api.GET("/orders", getOrdersHandler())
		api.GET("/orders/:id", getOrderHandler())

		api.GET("/suborders", getSubOrdersHandler())
		api.GET("/suborders/export", exportPackingListHandler())
		api.GET("/suborders/:id", getSubOrderHandler())
		api.GET("/suborders/:id/transitions", getSubOrderTransitionsHandler())
		api.PUT("/suborders/:id/status", updateSubOrderStatusHandler())

		api.GET("/products", getProductsHandler())
		api.GET("/products/:id", getProductHandler())
		api.POST("/products", requireAdmin(), createProductHandler())
		api.PUT("/products/:id", requireAdmin(), updateProductHandler())
		api.DELETE("/products/:id", requireAdmin(), deleteProductHandler())
		api.POST("/products/:id/restock", requireAdmin(), restockProductHandler())
		api.PATCH("/products/:id/active", requireAdmin(), toggleActiveHandler(models.ToggleActiveProduct))

		api.GET("/factories", getFactoriesHandler())
		api.GET("/factories/for-category", factoriesForCategoryHandler())
		api.GET("/factories/default-for-category", defaultFactoryForCategoryHandler())
		api.GET("/factories/:id", getFactoryHandler())
		api.GET("/factories/:id/branches", getFactoryBranchesHandler())
		api.POST("/factories", requireAdmin(), createFactoryHandler())
		api.PUT("/factories/:id", requireAdmin(), updateFactoryHandler())
		api.PATCH("/factories/:id/active", requireAdmin(), toggleActiveHandler(models.ToggleActiveFactory))

		api.GET("/branches", getBranchesHandler())
		api.GET("/branches/:id", getBranchHandler())
		api.POST("/branches", requireAdmin(), createBranchHandler())
		api.PUT("/branches/:id", requireAdmin(), updateBranchHandler())
		api.DELETE("/branches/:id", requireAdmin(), deleteBranchHandler())
		api.PATCH("/branches/:id/active", requireAdmin(), toggleActiveHandler(models.ToggleActiveBranch))

		api.GET("/outlets", getOutletsHandler())
		api.GET("/outlets/:id", getOutletHandler())
		api.POST("/outlets", requireAdmin(), createOutletHandler())
		api.PUT("/outlets/:id", requireAdmin(), updateOutletHandler())
		api.PATCH("/outlets/:id/active", requireAdmin(), toggleActiveHandler(models.ToggleActiveOutlet))
	}
	// Ops tooling (admin only): replay outbox events that were marked DEAD/FAILED.
	r.POST("/internal/ops/outbox/replay", requireAdmin(), outboxReplayHandler())
	r.POST("/internal/ops/cache/clear", requireAdmin(), cacheClearHandler())

	// Start listening immediately (Cloud Run startup probe is TCP based).
	srv := &http.Server{
		Addr:    ":" + port,
		Handler: r,
	}
	serverErrCh := make(chan error, 1)
	go func() {
		// ListenAndServe returns http.ErrServerClosed on graceful shutdown.
		serverErrCh <- srv.ListenAndServe()
	}()

	// Connect dependencies after the port is open.
	config.ConnectDatabaseWithRetry()
	config.ConnectRedisWithRetry()

	db := config.GetDB()
	sqlDB, _ := db.DB()
	defer func() {
		if sqlDB != nil {
			_ = sqlDB.Close()
		}
	}()
	// IMPORTANT: AutoMigrate can run DDL that blocks tables and causes 504/502 timeouts.
	// Production schemas are migrated as a separate job instead.
	if config.AutoMigrateOnBoot() {
		if err := models.MigrateModels(db); err != nil {
			logger.WithFields(logrus.Fields{"field": "migrations"}).Error("AutoMigrate failed: " + err.Error())
		}
	}

	// Make sure the notification topic exists before the dispatcher needs it.
	if topic := os.Getenv("PUBSUB_TOPIC"); topic != "" {
		go func() {
			client, err := config.GetClient(context.Background())
			if err != nil {
				logger.WithFields(logrus.Fields{"field": "pubsub"}).Error("pubsub client init failed: " + err.Error())
				return
			}
			if _, err := config.CreateTopicIfNotExists(client, topic); err != nil {
				logger.WithFields(logrus.Fields{"field": "pubsub"}).Error("ensure topic failed: " + err.Error())
			}
		}()
	}

	// Start outbox dispatcher (publishes AFTER commit).
	dispatcherCtx, cancelDispatcher := context.WithCancel(context.Background())
	defer cancelDispatcher()
	go workflow.NewOutboxDispatcher(db, logger).Run(dispatcherCtx)

	// Set the session isolation level to READ COMMITTED
	for attempt := 1; ; attempt++ {
		err := db.Exec("SET SESSION TRANSACTION ISOLATION LEVEL READ COMMITTED").Error
		if err == nil {
			break
		}
		sleep := time.Second * time.Duration(1<<attempt)
		if sleep > 30*time.Second {
			sleep = 30 * time.Second
		}
		logger.WithFields(logrus.Fields{
			"field":   "database",
			"attempt": attempt,
		}).Warn("failed to set isolation level; retrying in " + sleep.String() + ": " + err.Error())
		time.Sleep(sleep)
	}

	log.Println("Server started successfully")

	// Block until shutdown or server error.
	select {
	case <-sigCtx.Done():
		// graceful shutdown below
	case err := <-serverErrCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.WithFields(logrus.Fields{"field": "http"}).Error("server stopped unexpectedly: " + err.Error())
		}
	}

	// Stop background workers first so they don't start new work while we're draining.
	cancelDispatcher()

	// Drain HTTP requests.
	shutdownTimeout := 30 * time.Second
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.WithFields(logrus.Fields{"field": "http"}).Error("graceful shutdown failed: " + err.Error())
	}

	// Close Redis (best-effort).
	if rdb := config.GetRedisDB(); rdb != nil {
		_ = rdb.Close()
	}
}
