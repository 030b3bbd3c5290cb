package main

import (
	"log"
	_ "servipago/docs"
	"servipago/internal/adapter/http/middleware"
	"servipago/internal/adapter/http/routes"

	_ "github.com/joho/godotenv/autoload"
)

// @title           ServiPago Payments API
// @version         1.0
// @description     Payments core for the services marketplace (provider selection, fees, invoices, provider webhooks) backed by DynamoDB.
// @termsOfService  http://swagger.io/terms/

// @contact.name   API Support
// @contact.url    http://www.swagger.io/support
// @contact.email  support@swagger.io

// @license.name  Apache 2.0
// @license.url   http://www.apache.org/licenses/LICENSE-2.0.html

// @host localhost:8080

// @BasePath  /v1

// @securityDefinitions.apikey ActorAuth
// @in header
// @name X-Actor-ID
// @description Caller identity as forwarded by the API gateway (paired with X-Actor-Role).

func main() {
	shutdown, err := middleware.InitTracing("servipago")
	if err != nil {
		log.Printf("Tracing not configured: %v", err)
	} else {
		defer shutdown()
	}

	routes.Run()
}
