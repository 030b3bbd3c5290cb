package routes

import (
	"context"
	"log"
	"net/http"
	"os"
	_ "servipago/docs" // This will be auto-generated
	"servipago/internal/adapter/http/handlers"
	"servipago/internal/adapter/http/middleware"
	"servipago/internal/adapter/persistence/repository"
	"servipago/internal/domain/providers"
	"servipago/internal/infrastructure/database"
	"servipago/internal/infrastructure/notifications"
	"servipago/internal/infrastructure/payments"
	"servipago/internal/usecase"
	"servipago/internal/usecase/interfaces"
	"strings"

	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
)

var router = gin.New()

const defaultPort = "8080"

// Run will start the server
func Run() {
	setMiddlewares()

	// Swagger documentation endpoint
	router.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	router.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "up"})
	})
	router.GET("/metrics", middleware.PrometheusHandler())

	getRoutes()

	err := router.Run(":" + port())
	if err != nil {
		log.Fatalf("Failed to startup the application: %v", err.Error())
	}
}

func getRoutes() {
	ddb := database.ConnectDynamoDB()

	paymentRepo := repository.NewPaymentDynamoRepository(ddb)
	invoiceRepo := repository.NewInvoiceDynamoRepository(ddb)
	bookingStore := repository.NewServiceRequestDynamoRepository(ddb)

	registry, err := providers.LoadRegistry()
	if err != nil {
		log.Fatalf("Failed to load provider registry: %v", err)
	}

	gateways, err := payments.BuildGateways(registry)
	if err != nil {
		log.Fatalf("Failed to build payment gateways: %v", err)
	}

	var sink interfaces.INotificationSink
	kafkaSink, err := notifications.NewKafkaNotificationSink()
	if err != nil {
		log.Printf("Kafka notifications not configured: %v", err)
		sink = notifications.LogNotificationSink{}
	} else {
		sink = kafkaSink
	}

	invoiceUseCase := usecase.NewInvoiceUseCase(invoiceRepo)
	paymentUseCase := usecase.NewPaymentUseCase(paymentRepo, bookingStore, invoiceUseCase, registry, gateways, sink)
	webhookUseCase := usecase.NewWebhookUseCase(paymentRepo, paymentUseCase, gateways)

	sweeper := usecase.NewStuckPaymentSweeper(paymentRepo, paymentUseCase)
	go sweeper.Run(context.Background())

	paymentHandler := handlers.NewPaymentHandler(paymentUseCase)
	invoiceHandler := handlers.NewInvoiceHandler(invoiceUseCase)
	webhookHandler := handlers.NewWebhookHandler(webhookUseCase)

	v1 := router.Group("/v1")
	addPaymentRoutes(v1, paymentHandler, invoiceHandler)
	addWebhookRoutes(v1, webhookHandler)
}

func setMiddlewares() {
	router.Use(gin.Logger())
	router.Use(gin.CustomRecovery(func(c *gin.Context, recovered interface{}) {
		log.Printf("Recovered from panic: %v", recovered)
		c.AbortWithStatus(http.StatusInternalServerError)
	}))
	router.Use(otelgin.Middleware("servipago"))
	router.Use(middleware.MetricsMiddleware())
}

func port() string {
	if p := strings.TrimSpace(os.Getenv("PORT")); p != "" {
		return p
	}
	return defaultPort
}
