package http

import (
	"strings"

	"github.com/gin-gonic/gin"
)

// Server wraps the engine serving the ad-generation API plus the static
// /uploads and /outputs trees that the generated URLs point back into.
type Server struct {
	Engine *gin.Engine
}

func NewServer(cfg RouterConfig) *Server {
	return &Server{Engine: NewRouter(cfg)}
}

// Run listens on address; a bare port like "8000" is accepted as ":8000".
func (s *Server) Run(address string) error {
	if address != "" && !strings.Contains(address, ":") {
		address = ":" + address
	}
	return s.Engine.Run(address)
}
