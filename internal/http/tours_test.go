package http_test

import (
	"encoding/json"
	"net/http"
	"testing"

	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

const seaExplorer = `{"name":"The Sea Explorer","duration":7,"maxGroupSize":15,` +
	`"difficulty":"medium","price":497,"summary":"Exploring the jaw-dropping US east coast"}`

func TestTours_CRUD(t *testing.T) {
	env := newTestEnv(t)
	adminTok, _ := env.signup(t, "Admin", "admin@example.com", "StrongP@ss1", "admin")

	// create
	w := env.do("POST", "/api/v1/tours", seaExplorer, adminTok)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	var created struct {
		Data struct {
			Tour struct {
				ID    string  `json:"id"`
				Price float64 `json:"price"`
			} `json:"tour"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &created))
	require.EqualValues(t, 497, created.Data.Tour.Price)

	// read
	w = env.do("GET", "/api/v1/tours/"+created.Data.Tour.ID, "", "")
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	require.Contains(t, w.Body.String(), "The Sea Explorer")

	// update
	w = env.do("PATCH", "/api/v1/tours/"+created.Data.Tour.ID, `{"price":599}`, adminTok)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	require.Contains(t, w.Body.String(), "599")

	// delete
	w = env.do("DELETE", "/api/v1/tours/"+created.Data.Tour.ID, "", adminTok)
	require.Equal(t, http.StatusNoContent, w.Code)

	w = env.do("GET", "/api/v1/tours/"+created.Data.Tour.ID, "", "")
	require.Equal(t, http.StatusNotFound, w.Code)
}

func TestTours_RoleGate(t *testing.T) {
	env := newTestEnv(t)
	userTok, _ := env.signup(t, "User", "user@example.com", "StrongP@ss1", "")
	guideTok, _ := env.signup(t, "Guide", "guide@example.com", "StrongP@ss1", "lead-guide")

	// anonymous create
	w := env.do("POST", "/api/v1/tours", seaExplorer, "")
	require.Equal(t, http.StatusUnauthorized, w.Code)

	// plain user create
	w = env.do("POST", "/api/v1/tours", seaExplorer, userTok)
	require.Equal(t, http.StatusForbidden, w.Code)

	// lead guide is allowed
	w = env.do("POST", "/api/v1/tours", seaExplorer, guideTok)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
}

func TestTours_Validation(t *testing.T) {
	env := newTestEnv(t)
	adminTok, _ := env.signup(t, "Admin", "admin@example.com", "StrongP@ss1", "admin")

	cases := map[string]string{
		"missing name":   `{"duration":7,"maxGroupSize":15,"difficulty":"easy","price":100,"summary":"s"}`,
		"bad difficulty": `{"name":"T","duration":7,"maxGroupSize":15,"difficulty":"impossible","price":100,"summary":"s"}`,
		"zero price":     `{"name":"T","duration":7,"maxGroupSize":15,"difficulty":"easy","price":0,"summary":"s"}`,
	}
	for name, body := range cases {
		w := env.do("POST", "/api/v1/tours", body, adminTok)
		require.Equal(t, http.StatusBadRequest, w.Code, name)
	}

	// duplicate name
	w := env.do("POST", "/api/v1/tours", seaExplorer, adminTok)
	require.Equal(t, http.StatusCreated, w.Code)
	w = env.do("POST", "/api/v1/tours", seaExplorer, adminTok)
	require.Equal(t, http.StatusBadRequest, w.Code)
}

func TestTours_UnknownAndInvalidID(t *testing.T) {
	env := newTestEnv(t)
	adminTok, _ := env.signup(t, "Admin", "admin@example.com", "StrongP@ss1", "admin")

	w := env.do("GET", "/api/v1/tours/not-a-hex-id", "", "")
	require.Equal(t, http.StatusBadRequest, w.Code)

	ghost := primitive.NewObjectID().Hex()
	w = env.do("GET", "/api/v1/tours/"+ghost, "", "")
	require.Equal(t, http.StatusNotFound, w.Code)

	w = env.do("PATCH", "/api/v1/tours/"+ghost, `{"price":1}`, adminTok)
	require.Equal(t, http.StatusNotFound, w.Code)

	w = env.do("DELETE", "/api/v1/tours/"+ghost, "", adminTok)
	require.Equal(t, http.StatusNotFound, w.Code)
}

func TestTours_UpdateIgnoresImmutableFields(t *testing.T) {
	env := newTestEnv(t)
	adminTok, _ := env.signup(t, "Admin", "admin@example.com", "StrongP@ss1", "admin")

	w := env.do("POST", "/api/v1/tours", seaExplorer, adminTok)
	require.Equal(t, http.StatusCreated, w.Code)
	var created struct {
		Data struct {
			Tour struct {
				ID string `json:"id"`
			} `json:"tour"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &created))

	w = env.do("PATCH", "/api/v1/tours/"+created.Data.Tour.ID, `{"_id":"deadbeef"}`, adminTok)
	require.Equal(t, http.StatusBadRequest, w.Code)
	require.Contains(t, w.Body.String(), "nothing to update")
}

func TestTours_ListAppliesQueryFeatures(t *testing.T) {
	env := newTestEnv(t)

	w := env.do("GET", "/api/v1/tours?price[gte]=500&sort=-price,name&page=2&limit=5&fields=name,price", "", "")
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	f := env.Tours.lastFeatures
	require.NotNil(t, f)
	require.Equal(t, bson.M{"price": bson.M{"$gte": 500.0}}, f.FilterDocument())

	opts := f.FindOptions()
	require.NotNil(t, opts.Limit)
	require.EqualValues(t, 5, *opts.Limit)
	require.NotNil(t, opts.Skip)
	require.EqualValues(t, 5, *opts.Skip)
	require.Equal(t, bson.D{{Key: "price", Value: -1}, {Key: "name", Value: 1}}, opts.Sort)
	require.Equal(t, bson.M{"name": 1, "price": 1}, opts.Projection)
}
