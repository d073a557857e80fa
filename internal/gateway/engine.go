package gateway

import (
	"net/http"
	"sync"

	"github.com/gin-gonic/gin"
)

// ginModeOnce guards the global gin mode switch.
var ginModeOnce sync.Once

// newEngine mounts the assembled middleware chain on a gin engine.
// Every request flows through NoRoute into the chain; gin.Recovery
// is the backstop for panics outside it.
func newEngine(chain http.Handler) *gin.Engine {
	ginModeOnce.Do(func() {
		gin.SetMode(gin.ReleaseMode)
	})

	engine := gin.New()
	engine.Use(gin.Recovery())
	engine.NoRoute(gin.WrapH(chain))
	return engine
}
