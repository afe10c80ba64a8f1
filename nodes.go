package main

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/aquilax/cmsnode/database"
	"github.com/aquilax/cmsnode/node"
	"github.com/gorilla/mux"
	"go.uber.org/zap"
)

// NodeView is the JSON form of a node.
type NodeView struct {
	ID              int64       `json:"id"`
	Module          string      `json:"module"`
	IsActive        *bool       `json:"is_active"`
	Enabled         bool        `json:"enabled"`
	Template        string      `json:"template"`
	FolderID        int64       `json:"folder_id"`
	BlockID         int64       `json:"block_id"`
	BlockName       string      `json:"block_name"`
	Position        int         `json:"position"`
	Priority        int         `json:"priority"`
	IsCached        *bool       `json:"is_cached"`
	Description     string      `json:"description,omitempty"`
	DescriptionHTML string      `json:"description_html,omitempty"`
	Params          node.Params `json:"params"`
	Controller      string      `json:"controller"`
	CreatedByUserID int64       `json:"created_by_user_id"`
	CreatedAt       time.Time   `json:"created_at"`
}

func boolPtr(b sql.NullBool) *bool {
	if !b.Valid {
		return nil
	}
	v := b.Bool
	return &v
}

func (e *Engine) nodeView(n *node.Node) (NodeView, error) {
	folderID, err := n.FolderID()
	if err != nil {
		return NodeView{}, err
	}
	blockName, err := n.BlockName()
	if err != nil {
		return NodeView{}, err
	}
	return NodeView{
		ID:              n.ID(),
		Module:          n.Module(),
		IsActive:        boolPtr(n.Active()),
		Enabled:         n.IsEnabled(),
		Template:        n.Template(e.config.DefaultTemplate),
		FolderID:        folderID,
		BlockID:         n.Block().BlockID(),
		BlockName:       blockName,
		Position:        n.Position(),
		Priority:        n.Priority(),
		IsCached:        boolPtr(n.Cached()),
		Description:     n.Description(),
		DescriptionHTML: renderText(n.Description()),
		Params:          n.Params(),
		Controller:      n.Controller().Target(),
		CreatedByUserID: n.CreatedByUserID(),
		CreatedAt:       n.CreatedAt(),
	}, nil
}

func (e *Engine) nodeViews(nl node.NodeList) ([]NodeView, error) {
	views := make([]NodeView, 0, len(nl))
	for _, n := range nl {
		v, err := e.nodeView(n)
		if err != nil {
			return nil, err
		}
		views = append(views, v)
	}
	return views, nil
}

func (e *Engine) loadNode(r *http.Request) (*node.Node, error) {
	nodeID, err := parseID(mux.Vars(r)["nodeID"])
	if err != nil {
		return nil, err
	}
	return e.m.getNode(r.Context(), nodeID)
}

// nodeForm applies the posted fields to n. Fields missing from the form are
// left untouched, so the same code serves create and edit.
type nodeForm struct {
	values map[string][]string
	fields map[string]string
}

func (f *nodeForm) get(key string) (string, bool) {
	vs, ok := f.values[key]
	if !ok || len(vs) == 0 {
		return "", false
	}
	return strings.TrimSpace(vs[0]), true
}

// integer parses a number. An empty value calls empty when given.
func (f *nodeForm) integer(key string, set func(int), empty func()) {
	v, ok := f.get(key)
	if !ok {
		return
	}
	if v == "" && empty != nil {
		empty()
		return
	}
	i, err := strconv.Atoi(v)
	if err != nil {
		f.fields[key] = "number"
		return
	}
	set(i)
}

func (f *nodeForm) id(key string) (int64, bool) {
	v, ok := f.get(key)
	if !ok {
		return 0, false
	}
	id, err := strconv.ParseInt(v, 10, 64)
	if err != nil || id <= 0 {
		f.fields[key] = "id"
		return 0, false
	}
	return id, true
}

// flag sets a nullable flag; an empty value clears it.
func (f *nodeForm) flag(key string, set func(bool), clear func()) {
	v, ok := f.get(key)
	if !ok {
		return
	}
	if v == "" {
		clear()
		return
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		f.fields[key] = "boolean"
		return
	}
	set(b)
}

func (e *Engine) applyNodeForm(ctx context.Context, s *Session, r *http.Request, n *node.Node, create bool) error {
	if err := r.ParseForm(); err != nil {
		return badRequest(s.Lang("Invalid form"), err)
	}
	f := &nodeForm{values: r.PostForm, fields: make(map[string]string)}

	if v, ok := f.get("module"); ok {
		n.SetModule(v)
	}
	if v, ok := f.get("template"); ok {
		n.SetTemplate(v)
	}
	if v, ok := f.get("description"); ok {
		n.SetDescription(v)
	}
	f.integer("position", func(i int) { n.SetPosition(i) }, func() { n.SetPosition(0) })
	f.integer("priority", func(i int) { n.SetPriority(i) }, nil)
	f.flag("is_active", func(b bool) { n.SetActive(b) }, func() { n.ClearActive() })
	f.flag("is_cached", func(b bool) { n.SetCached(b) }, func() { n.ClearCached() })
	if v, ok := f.get("params"); ok {
		params := make(node.Params)
		if v != "" {
			if err := json.Unmarshal([]byte(v), &params); err != nil {
				f.fields["params"] = "json"
			}
		}
		n.SetParams(params)
	}
	if create {
		if userID, ok := f.id("user_id"); ok {
			n.SetCreatedByUserID(userID)
		}
	}
	if len(f.fields) > 0 {
		return &node.ValidationError{Fields: f.fields}
	}

	if folderID, ok := f.id("folder_id"); ok {
		folder, err := e.m.getFolder(ctx, folderID)
		if err != nil {
			return relationLookupError(s.Lang("Unknown folder"), err)
		}
		if err := n.SetFolder(folder); err != nil {
			return err
		}
	}
	if blockID, ok := f.id("block_id"); ok {
		block, err := e.m.db.GetBlock(ctx, blockID)
		if err != nil {
			return relationLookupError(s.Lang("Unknown block"), err)
		}
		if err := n.SetBlock(block); err != nil {
			return err
		}
	}
	if len(f.fields) > 0 {
		return &node.ValidationError{Fields: f.fields}
	}
	return nil
}

func relationLookupError(message string, err error) error {
	if errors.Is(err, database.ErrNotFound) {
		return &HTTPError{Err: err, Message: message, Code: http.StatusUnprocessableEntity}
	}
	return err
}

func (e *Engine) addNodeHandler(w http.ResponseWriter, r *http.Request) error {
	s := e.session()
	if !e.th.CanWrite(remoteHost(r.RemoteAddr)) {
		return &HTTPError{Message: s.Lang("Please wait before posting again"), Code: http.StatusTooManyRequests}
	}
	n := node.New()
	if err := e.applyNodeForm(r.Context(), s, r, n, true); err != nil {
		return err
	}
	id, err := e.m.addNode(r.Context(), n)
	if err != nil {
		return err
	}
	e.metrics.NodesCreated.Inc()
	e.logger.Info("Node created",
		zap.Int64("nodeID", id),
		zap.String("module", n.Module()),
		zap.String("requestID", requestID(r.Context())),
	)
	v, err := e.nodeView(n)
	if err != nil {
		return err
	}
	w.Header().Set("Location", "/nodes/"+strconv.FormatInt(id, 10))
	s.Set("node", v)
	return s.render(w, http.StatusCreated)
}

func (e *Engine) nodeHandler(w http.ResponseWriter, r *http.Request) error {
	n, err := e.loadNode(r)
	if err != nil {
		return err
	}
	v, err := e.nodeView(n)
	if err != nil {
		return err
	}
	s := e.session()
	s.Set("node", v)
	return s.render(w, http.StatusOK)
}

func (e *Engine) editNodeHandler(w http.ResponseWriter, r *http.Request) error {
	n, err := e.loadNode(r)
	if err != nil {
		return err
	}
	s := e.session()
	if err := e.applyNodeForm(r.Context(), s, r, n, false); err != nil {
		return err
	}
	if err := e.m.editNode(r.Context(), n); err != nil {
		return err
	}
	v, err := e.nodeView(n)
	if err != nil {
		return err
	}
	s.Set("node", v)
	return s.render(w, http.StatusOK)
}

func (e *Engine) deleteNodeHandler(w http.ResponseWriter, r *http.Request) error {
	nodeID, err := parseID(mux.Vars(r)["nodeID"])
	if err != nil {
		return err
	}
	if err := e.m.db.DeleteNode(r.Context(), nodeID); err != nil {
		return err
	}
	e.metrics.NodesDeleted.Inc()
	w.WriteHeader(http.StatusNoContent)
	return nil
}

func (e *Engine) controllerHandler(w http.ResponseWriter, r *http.Request) error {
	n, err := e.loadNode(r)
	if err != nil {
		return err
	}
	q := r.URL.Query()
	c := n.ControllerFor(q.Get("controller"), q.Get("action"))
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	return json.NewEncoder(w).Encode(c)
}

func (e *Engine) snapshotHandler(w http.ResponseWriter, r *http.Request) error {
	n, err := e.loadNode(r)
	if err != nil {
		return err
	}
	data, err := n.MarshalBinary()
	if err != nil {
		return err
	}
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	_, err = w.Write(data)
	return err
}
