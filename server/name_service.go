package server

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/cdmatta/pseudofsd/middleware"
	"github.com/cdmatta/pseudofsd/pseudofs"
	"github.com/julienschmidt/httprouter"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

// NameService exposes a pseudo-filesystem over HTTP. Lookups, reservations
// and removals all run under the filesystem lock, which is the whole
// concurrency story of the tree.
type NameService struct {
	fs               *pseudofs.Filesystem
	router           *httprouter.Router
	globalFilterFunc http.HandlerFunc
}

func NewNameService(fs *pseudofs.Filesystem) *NameService {
	s := &NameService{
		fs:     fs,
		router: httprouter.New(),
	}

	s.router.GET("/v1/node/*path", s.lookup)
	s.router.PUT("/v1/node/*path", s.reserve)
	s.router.DELETE("/v1/node/*path", s.remove)
	s.router.GET("/v1/tree.dot", s.treeDot)
	s.router.Handler(http.MethodGet, "/metrics", promhttp.Handler())

	return s
}

func (s *NameService) WithGlobalFilterFunc(m middleware.FilterFunctionAdaptor) *NameService {
	s.globalFilterFunc = m(func(w http.ResponseWriter, req *http.Request) {
		s.router.ServeHTTP(w, req)
	})
	return s
}

func (s *NameService) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	if s.globalFilterFunc != nil {
		s.globalFilterFunc(w, req)
		return
	}
	s.router.ServeHTTP(w, req)
}

func (s *NameService) ListenAndServe(addr string) error {
	return http.ListenAndServe(addr, s)
}

type nodeResponse struct {
	Path    string `json:"path"`
	Name    string `json:"name"`
	Kind    string `json:"kind"`
	Target  string `json:"target,omitempty"`
	RelPath string `json:"relpath,omitempty"`
	Parent  string `json:"parent,omitempty"`
	Peer    string `json:"peer,omitempty"`
}

type reserveRequest struct {
	Kind   string `json:"kind"`
	Target string `json:"target,omitempty"`
}

type errorResponse struct {
	Errno string `json:"errno"`
	Error string `json:"error"`
}

func (s *NameService) lookup(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	path := ps.ByName("path")
	if path == "" || path == "/" {
		// The searcher reports the bare root as a miss, the root inode is
		// answered for directly.
		writeJSON(w, http.StatusOK, nodeResponse{Path: "/", Name: "/", Kind: pseudofs.Ordinary.String()})
		return
	}

	follow := r.URL.Query().Get("follow") != "false"

	s.fs.Lock()
	var (
		res pseudofs.SearchResult
		err error
	)
	if follow {
		res, err = s.fs.Search(path)
	} else {
		res, err = s.fs.SearchNoFollow(path)
	}
	s.fs.Unlock()

	if err != nil {
		writeError(w, err, path)
		return
	}
	if res.Node == nil {
		writeJSON(w, http.StatusNotFound, errorResponse{Errno: "ENOENT", Error: "no such node: " + path})
		return
	}

	resp := nodeResponse{
		Path:    path,
		Name:    res.Node.Name(),
		Kind:    res.Node.Kind().String(),
		Target:  res.Node.Target(),
		RelPath: res.RelPath,
	}
	if res.Parent != nil {
		resp.Parent = res.Parent.Name()
	}
	if res.Peer != nil {
		resp.Peer = res.Peer.Name()
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *NameService) reserve(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	path := ps.ByName("path")

	var req reserveRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Errno: "EINVAL", Error: err.Error()})
		return
	}

	kind, err := pseudofs.ParseKind(req.Kind)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Errno: "EINVAL", Error: err.Error()})
		return
	}

	s.fs.Lock()
	node, err := s.fs.Reserve(path, kind, req.Target)
	s.fs.Unlock()

	if err != nil {
		writeError(w, err, path)
		return
	}

	zap.S().Infow("reserved", "path", path, "kind", kind.String())
	writeJSON(w, http.StatusCreated, nodeResponse{
		Path:   path,
		Name:   node.Name(),
		Kind:   node.Kind().String(),
		Target: node.Target(),
	})
}

func (s *NameService) remove(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	path := ps.ByName("path")

	s.fs.Lock()
	err := s.fs.Remove(path)
	s.fs.Unlock()

	if err != nil {
		writeError(w, err, path)
		return
	}

	zap.S().Infow("removed", "path", path)
	w.WriteHeader(http.StatusNoContent)
}

func (s *NameService) treeDot(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	w.Header().Set("Content-Type", "text/vnd.graphviz")

	s.fs.Lock()
	defer s.fs.Unlock()
	if err := pseudofs.NewTreeDotWriter().Write(w, s.fs); err != nil {
		zap.S().Errorw("tree.dot", "error", err)
	}
}

// writeError translates resolver and reservation errors into errno-style
// HTTP responses.
func writeError(w http.ResponseWriter, err error, path string) {
	var (
		status int
		errno  string
	)
	switch {
	case errors.Is(err, pseudofs.ErrLinkLoop):
		status, errno = http.StatusLoopDetected, "ELOOP"
	case errors.Is(err, pseudofs.ErrNotFound):
		status, errno = http.StatusNotFound, "ENOENT"
	case errors.Is(err, pseudofs.ErrExist):
		status, errno = http.StatusConflict, "EEXIST"
	case errors.Is(err, pseudofs.ErrNotEmpty):
		status, errno = http.StatusConflict, "ENOTEMPTY"
	case errors.Is(err, pseudofs.ErrMountpoint):
		status, errno = http.StatusUnprocessableEntity, "EXDEV"
	case errors.Is(err, pseudofs.ErrInvalidPath):
		status, errno = http.StatusUnprocessableEntity, "EINVAL"
	default:
		status, errno = http.StatusInternalServerError, "EIO"
	}

	zap.S().Debugw("request failed", "path", path, "errno", errno, "error", err)
	writeJSON(w, status, errorResponse{Errno: errno, Error: err.Error()})
}

func writeJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		zap.S().Errorw("write response", "error", err)
	}
}
