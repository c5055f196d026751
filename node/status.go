package node

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/andydunstall/glomers/pkg/status"
)

// NodeStatus is a snapshot of the node state exposed by the admin API.
type NodeStatus struct {
	ID      string   `json:"id,omitempty"`
	NodeIDs []string `json:"node_ids,omitempty"`
	Phase   Phase    `json:"phase"`

	// Workload contains the actor status if the actor implements Inspector.
	Workload any `json:"workload,omitempty"`
}

const statusTimeout = time.Second * 5

// Status exposes the runtime status in the admin API.
type Status struct {
	runtime *Runtime
}

func NewStatus(runtime *Runtime) *Status {
	return &Status{
		runtime: runtime,
	}
}

func (s *Status) Register(group *gin.RouterGroup) {
	group.GET("", s.nodeRoute)
	group.GET("/workload", s.workloadRoute)
}

func (s *Status) nodeRoute(c *gin.Context) {
	st, ok := s.status(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, st)
}

func (s *Status) workloadRoute(c *gin.Context) {
	st, ok := s.status(c)
	if !ok {
		return
	}
	if st.Workload == nil {
		status.Abort(c, http.StatusNotFound, "workload status not available")
		return
	}
	c.JSON(http.StatusOK, st.Workload)
}

func (s *Status) status(c *gin.Context) (*NodeStatus, bool) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), statusTimeout)
	defer cancel()

	st, err := s.runtime.Status(ctx)
	if err != nil {
		status.Abort(c, http.StatusServiceUnavailable, "node unavailable")
		return nil, false
	}
	return st, true
}

var _ status.Handler = &Status{}
