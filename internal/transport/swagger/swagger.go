package swagger

import (
	"net/http"

	httpSwagger "github.com/swaggo/http-swagger"
)

func Handler() http.Handler {
	// Serve the OpenAPI spec published at the root
	return httpSwagger.Handler(
		httpSwagger.URL("/openapi.yml"),
	)
}
