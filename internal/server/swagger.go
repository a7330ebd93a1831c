package server

import (
	"net/http"

	"workshops/docs"

	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
)

// SetupSwagger serves the API description at /swagger. The admin cookie is
// kept between calls so the admin routes can be tried from the UI after login.
func SetupSwagger(r *gin.Engine, version string) {
	if version != "" {
		docs.SwaggerInfo.Version = version
	}
	// served from whatever host the request reached
	docs.SwaggerInfo.Host = ""

	r.GET("/swagger", func(c *gin.Context) {
		c.Redirect(http.StatusMovedPermanently, "/swagger/index.html")
	})
	r.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler,
		ginSwagger.DocExpansion("none"),
		ginSwagger.PersistAuthorization(true),
	))
}
