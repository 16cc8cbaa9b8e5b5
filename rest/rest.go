// Package rest exposes a set of named stores over HTTP. Values are opaque
// octet streams; keys live in the URL path, so the extended keyspace maps
// onto it directly.
package rest

import (
	"net/http"
	"sort"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/data-engineering-collective/minimalkv"
)

// API serves named stores over HTTP.
type API struct {
	stores map[string]minimalkv.Store
}

// NewAPI returns an API over the given stores.
func NewAPI(stores map[string]minimalkv.Store) *API {
	return &API{stores: stores}
}

// Router builds the gin engine with all routes registered. The key routes
// use a catch-all parameter, so it must not share a level with a static
// sibling; key listing therefore lives on the store resource itself.
func (a *API) Router() *gin.Engine {
	router := gin.Default()
	router.GET("/stores", a.GetStores)
	router.GET("/stores/:store", a.GetKeys)
	router.GET("/stores/:store/keys/*key", a.GetValue)
	router.HEAD("/stores/:store/keys/*key", a.HeadValue)
	router.PUT("/stores/:store/keys/*key", a.PutValue)
	router.DELETE("/stores/:store/keys/*key", a.DeleteValue)
	return router
}

// GetStores responds with the sorted list of store names as JSON.
func (a *API) GetStores(c *gin.Context) {
	names := make([]string, 0, len(a.stores))
	for name := range a.stores {
		names = append(names, name)
	}
	sort.Strings(names)
	c.IndentedJSON(http.StatusOK, names)
}

// GetKeys responds with the store's keys, optionally narrowed by a prefix
// query parameter.
func (a *API) GetKeys(c *gin.Context) {
	store, ok := a.store(c)
	if !ok {
		return
	}
	keys, err := minimalkv.Keys(c.Request.Context(), store, c.Query("prefix"))
	if err != nil {
		abortWith(c, err)
		return
	}
	if keys == nil {
		keys = []string{}
	}
	c.IndentedJSON(http.StatusOK, keys)
}

// GetValue streams the value at the key.
func (a *API) GetValue(c *gin.Context) {
	store, ok := a.store(c)
	if !ok {
		return
	}
	value, err := minimalkv.Get(c.Request.Context(), store, pathKey(c))
	if err != nil {
		abortWith(c, err)
		return
	}
	c.Data(http.StatusOK, "application/octet-stream", value)
}

// HeadValue reports key existence without a body.
func (a *API) HeadValue(c *gin.Context) {
	store, ok := a.store(c)
	if !ok {
		return
	}
	found, err := minimalkv.HasKey(c.Request.Context(), store, pathKey(c))
	if err != nil {
		c.Status(statusFor(err))
		return
	}
	if !found {
		c.Status(http.StatusNotFound)
		return
	}
	c.Status(http.StatusOK)
}

// PutValue stores the request body at the key.
func (a *API) PutValue(c *gin.Context) {
	store, ok := a.store(c)
	if !ok {
		return
	}
	key := pathKey(c)
	if err := minimalkv.ValidatorFor(store)(key); err != nil {
		abortWith(c, err)
		return
	}
	stored, err := store.PutReader(c.Request.Context(), key, c.Request.Body)
	if err != nil {
		abortWith(c, err)
		return
	}
	c.IndentedJSON(http.StatusOK, gin.H{"key": stored})
}

// DeleteValue removes the key; deleting an absent key succeeds.
func (a *API) DeleteValue(c *gin.Context) {
	store, ok := a.store(c)
	if !ok {
		return
	}
	key := pathKey(c)
	if err := minimalkv.ValidatorFor(store)(key); err != nil {
		abortWith(c, err)
		return
	}
	if err := store.Delete(c.Request.Context(), key); err != nil {
		abortWith(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (a *API) store(c *gin.Context) (minimalkv.Store, bool) {
	store, ok := a.stores[c.Param("store")]
	if !ok {
		c.IndentedJSON(http.StatusNotFound, gin.H{"message": "no such store"})
		return nil, false
	}
	return store, true
}

// pathKey strips the leading slash gin keeps on wildcard parameters.
func pathKey(c *gin.Context) string {
	return strings.TrimPrefix(c.Param("key"), "/")
}

func abortWith(c *gin.Context, err error) {
	c.IndentedJSON(statusFor(err), gin.H{"message": err.Error()})
}

func statusFor(err error) int {
	switch {
	case minimalkv.IsKeyNotFound(err):
		return http.StatusNotFound
	case minimalkv.IsInvalidKey(err):
		return http.StatusBadRequest
	case minimalkv.IsReadOnly(err):
		return http.StatusForbidden
	case minimalkv.IsUnsupported(err):
		return http.StatusNotImplemented
	default:
		return http.StatusInternalServerError
	}
}
