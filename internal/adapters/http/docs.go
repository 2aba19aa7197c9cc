package http

import (
	"os"

	"github.com/gofiber/fiber/v2"
)

const swaggerUIHTML = `<!DOCTYPE html>
<html lang="en">
<head>
  <meta charset="UTF-8">
  <title>Gigmap API</title>
  <link rel="stylesheet" href="https://cdn.jsdelivr.net/npm/swagger-ui-dist@5/swagger-ui.css">
</head>
<body>
  <div id="swagger-ui"></div>
  <script src="https://cdn.jsdelivr.net/npm/swagger-ui-dist@5/swagger-ui-bundle.js"></script>
  <script>
    SwaggerUIBundle({url: '/docs/openapi.yaml', dom_id: '#swagger-ui', deepLinking: true});
  </script>
</body>
</html>`

// SetupDocs serves Swagger UI at /docs and the OpenAPI document at specPath
// under /docs/openapi.yaml. The document is read once at startup.
func SetupDocs(app *fiber.App, specPath string) {
	spec, specErr := os.ReadFile(specPath)

	app.Get("/docs", func(c *fiber.Ctx) error {
		c.Set(fiber.HeaderContentType, fiber.MIMETextHTMLCharsetUTF8)
		return c.SendString(swaggerUIHTML)
	})
	app.Get("/docs/openapi.yaml", func(c *fiber.Ctx) error {
		if specErr != nil {
			return errNotFound(c, "openapi document not found")
		}
		c.Set(fiber.HeaderContentType, "application/yaml")
		return c.Send(spec)
	})
}
