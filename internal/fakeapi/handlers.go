package fakeapi

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	jsonpatch "github.com/evanphx/json-patch"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

type collectionHandler struct {
	server *Server
	coll   Collection
}

type inboundResource struct {
	Type          string                     `json:"type"`
	ID            string                     `json:"id"`
	Attributes    json.RawMessage            `json:"attributes"`
	Relationships map[string]json.RawMessage `json:"relationships"`
}

type inboundDocument struct {
	Data *inboundResource `json:"data"`
}

// scope fills the collection path placeholders from the request
func (h *collectionHandler) scope(r *http.Request) string {
	scope := h.coll.Path
	for _, name := range h.coll.params() {
		scope = strings.ReplaceAll(scope, "{"+name+"}", chi.URLParam(r, name))
	}
	return strings.TrimSuffix(scope, "/")
}

func (h *collectionHandler) list(w http.ResponseWriter, r *http.Request) {
	q, err := parseListQuery(r.URL.Query())
	if err != nil {
		writeErrors(w, http.StatusBadRequest, errInvalidQuery(err.Error()))
		return
	}

	page, total, err := q.apply(h.server.store.list(h.scope(r)))
	if err != nil {
		writeErrors(w, http.StatusBadRequest, errInvalidQuery(err.Error()))
		return
	}

	if q.count {
		writeJSON(w, http.StatusOK, map[string]any{"meta": map[string]any{"count": total}})
		return
	}

	data := make([]map[string]any, 0, len(page))
	for _, rec := range page {
		data = append(data, h.resourceObject(r, rec))
	}
	doc := map[string]any{
		"data": data,
		"meta": map[string]any{"total": total},
	}
	if included := h.included(r, page, q.includes); len(included) > 0 {
		doc["included"] = included
	}
	writeJSON(w, http.StatusOK, doc)
}

func (h *collectionHandler) show(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, resourceIDParam)
	rec, ok := h.server.store.get(h.scope(r), id)
	if !ok {
		writeErrors(w, http.StatusNotFound, errNotFound(fmt.Sprintf("%s %s does not exist.", h.coll.Type, id)))
		return
	}

	doc := map[string]any{"data": h.resourceObject(r, rec)}
	if included := h.included(r, []*record{rec}, splitList(r.URL.Query().Get("include"))); len(included) > 0 {
		doc["included"] = included
	}
	writeJSON(w, http.StatusOK, doc)
}

func (h *collectionHandler) create(w http.ResponseWriter, r *http.Request) {
	in, ok := h.decode(w, r)
	if !ok {
		return
	}

	scope := h.scope(r)
	id := in.ID
	if id == "" {
		id = uuid.NewString()
	} else if _, exists := h.server.store.get(scope, id); exists {
		writeErrors(w, http.StatusConflict, errConflict(fmt.Sprintf("%s %s already exists.", h.coll.Type, id)))
		return
	}

	attrs := map[string]any{}
	if len(in.Attributes) > 0 {
		if err := json.Unmarshal(in.Attributes, &attrs); err != nil || attrs == nil {
			writeErrors(w, http.StatusBadRequest, errInvalidDocument("attributes must be an object"))
			return
		}
	}
	rels, err := applyRelationships(nil, in.Relationships)
	if err != nil {
		writeErrors(w, http.StatusBadRequest, errInvalidDocument(err.Error()))
		return
	}

	rec := &record{scope: scope, Type: h.coll.Type, ID: id, Attributes: attrs, Relationships: rels}
	h.server.store.put(rec)

	h.server.logger.Debug("resource created", zap.String("type", rec.Type), zap.String("id", id))

	w.Header().Set(HeaderLocation, selfURL(r, scope, id))
	w.Header().Set(HeaderResourceID, id)
	writeJSON(w, http.StatusCreated, map[string]any{"data": h.resourceObject(r, rec)})
}

func (h *collectionHandler) update(w http.ResponseWriter, r *http.Request) {
	scope := h.scope(r)
	id := chi.URLParam(r, resourceIDParam)
	existing, ok := h.server.store.get(scope, id)
	if !ok {
		writeErrors(w, http.StatusNotFound, errNotFound(fmt.Sprintf("%s %s does not exist.", h.coll.Type, id)))
		return
	}

	in, ok := h.decode(w, r)
	if !ok {
		return
	}
	if in.ID != id {
		writeErrors(w, http.StatusConflict, errConflict(fmt.Sprintf("document id %q does not match %q", in.ID, id)))
		return
	}

	attrs := existing.Attributes
	if len(in.Attributes) > 0 && !bytes.Equal(bytes.TrimSpace(in.Attributes), []byte("null")) {
		merged, err := mergeAttributes(existing.Attributes, in.Attributes)
		if err != nil {
			writeErrors(w, http.StatusBadRequest, errInvalidDocument(err.Error()))
			return
		}
		attrs = merged
	}
	rels, err := applyRelationships(existing.Relationships, in.Relationships)
	if err != nil {
		writeErrors(w, http.StatusBadRequest, errInvalidDocument(err.Error()))
		return
	}

	rec := &record{scope: scope, Type: existing.Type, ID: id, Attributes: attrs, Relationships: rels}
	h.server.store.put(rec)

	writeJSON(w, http.StatusOK, map[string]any{"data": h.resourceObject(r, rec)})
}

func (h *collectionHandler) remove(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, resourceIDParam)
	if !h.server.store.remove(h.scope(r), id) {
		writeErrors(w, http.StatusNotFound, errNotFound(fmt.Sprintf("%s %s does not exist.", h.coll.Type, id)))
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// decode reads a single-resource document whose type matches the collection
func (h *collectionHandler) decode(w http.ResponseWriter, r *http.Request) (*inboundResource, bool) {
	var doc inboundDocument
	if err := json.NewDecoder(r.Body).Decode(&doc); err != nil {
		writeErrors(w, http.StatusBadRequest, errInvalidDocument(err.Error()))
		return nil, false
	}
	if doc.Data == nil {
		writeErrors(w, http.StatusBadRequest, errInvalidDocument("data must be a resource object"))
		return nil, false
	}
	if doc.Data.Type == "" {
		writeErrors(w, http.StatusBadRequest, errInvalidDocument("data.type is required"))
		return nil, false
	}
	if doc.Data.Type != h.coll.Type {
		writeErrors(w, http.StatusConflict, errConflict(
			fmt.Sprintf("type %q does not match collection type %q", doc.Data.Type, h.coll.Type)))
		return nil, false
	}
	return doc.Data, true
}

// mergeAttributes applies patch to attrs as an RFC 7386 merge patch
func mergeAttributes(attrs map[string]any, patch json.RawMessage) (map[string]any, error) {
	original, err := json.Marshal(attrs)
	if err != nil {
		return nil, err
	}
	merged, err := jsonpatch.MergePatch(original, patch)
	if err != nil {
		return nil, fmt.Errorf("failed to apply attributes: %w", err)
	}
	out := map[string]any{}
	if err := json.Unmarshal(merged, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// applyRelationships replaces each named relationship; null and
// {data:null} remove it
func applyRelationships(existing map[string]any, changes map[string]json.RawMessage) (map[string]any, error) {
	out := make(map[string]any, len(existing)+len(changes))
	for k, v := range existing {
		out[k] = v
	}
	for name, raw := range changes {
		var rel map[string]any
		if err := json.Unmarshal(raw, &rel); err != nil {
			return nil, fmt.Errorf("relationship %s must be an object", name)
		}
		if rel == nil {
			delete(out, name)
			continue
		}
		data, ok := rel["data"]
		if !ok {
			return nil, fmt.Errorf("relationship %s has no data", name)
		}
		if data == nil {
			delete(out, name)
			continue
		}
		out[name] = map[string]any{"data": data}
	}
	return out, nil
}

func (h *collectionHandler) resourceObject(r *http.Request, rec *record) map[string]any {
	attrs := rec.Attributes
	if attrs == nil {
		attrs = map[string]any{}
	}
	obj := map[string]any{
		"type":       rec.Type,
		"id":         rec.ID,
		"attributes": attrs,
		"links":      map[string]any{"self": selfURL(r, rec.scope, rec.ID)},
	}
	if len(rec.Relationships) > 0 {
		obj["relationships"] = rec.Relationships
	}
	return obj
}

// included resolves the named relationships of data against every scope
func (h *collectionHandler) included(r *http.Request, data []*record, names []string) []map[string]any {
	if len(names) == 0 {
		return nil
	}

	seen := make(map[recordKey]bool, len(data))
	for _, rec := range data {
		seen[recordKey{rec.Type, rec.ID}] = true
	}

	var out []map[string]any
	for _, rec := range data {
		for _, name := range names {
			for _, key := range linkageKeys(rec.Relationships[name]) {
				if seen[key] {
					continue
				}
				seen[key] = true
				if target, ok := h.server.store.lookup(key.typeName, key.id); ok {
					out = append(out, h.resourceObject(r, target))
				}
			}
		}
	}
	return out
}

func linkageKeys(rel any) []recordKey {
	m, ok := rel.(map[string]any)
	if !ok {
		return nil
	}
	switch data := m["data"].(type) {
	case map[string]any:
		if key, ok := identifierKey(data); ok {
			return []recordKey{key}
		}
	case []any:
		keys := make([]recordKey, 0, len(data))
		for _, item := range data {
			if ident, ok := item.(map[string]any); ok {
				if key, ok := identifierKey(ident); ok {
					keys = append(keys, key)
				}
			}
		}
		return keys
	}
	return nil
}

func identifierKey(ident map[string]any) (recordKey, bool) {
	typeName, ok1 := ident["type"].(string)
	id, ok2 := ident["id"].(string)
	return recordKey{typeName, id}, ok1 && ok2
}

func selfURL(r *http.Request, scope, id string) string {
	scheme := "http"
	if r.TLS != nil {
		scheme = "https"
	}
	return scheme + "://" + r.Host + scope + "/" + url.PathEscape(id)
}
