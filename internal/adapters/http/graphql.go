package http

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"github.com/graphql-go/graphql"

	"github.com/samirrijal/gigmap/internal/core/domain"
)

// buildSchema creates the GraphQL schema wired to our services. Object
// fields resolve through the domain types' json tags.
func buildSchema(deps *Dependencies) (graphql.Schema, error) {
	coordinateType := graphql.NewObject(graphql.ObjectConfig{
		Name: "Coordinate",
		Fields: graphql.Fields{
			"lat": &graphql.Field{Type: graphql.Float},
			"lon": &graphql.Field{Type: graphql.Float},
		},
	})

	venueType := graphql.NewObject(graphql.ObjectConfig{
		Name: "Venue",
		Fields: graphql.Fields{
			"id":            &graphql.Field{Type: graphql.String},
			"name":          &graphql.Field{Type: graphql.String},
			"name_variants": &graphql.Field{Type: graphql.NewList(graphql.String)},
			"address":       &graphql.Field{Type: graphql.String},
			"coordinate":    &graphql.Field{Type: coordinateType},
			"external_id":   &graphql.Field{Type: graphql.String},
			"verified":      &graphql.Field{Type: graphql.Boolean},
			"distance":      &graphql.Field{Type: graphql.Float},
		},
	})

	externalType := graphql.NewObject(graphql.ObjectConfig{
		Name: "ExternalCandidate",
		Fields: graphql.Fields{
			"external_id": &graphql.Field{Type: graphql.String},
			"name":        &graphql.Field{Type: graphql.String},
			"address":     &graphql.Field{Type: graphql.String},
			"coordinate":  &graphql.Field{Type: coordinateType},
		},
	})

	searchResultType := graphql.NewObject(graphql.ObjectConfig{
		Name: "SearchResult",
		Fields: graphql.Fields{
			"internal": &graphql.Field{Type: graphql.NewList(venueType)},
			"external": &graphql.Field{Type: graphql.NewList(externalType)},
			"degraded": &graphql.Field{Type: graphql.Boolean},
		},
	})

	markerType := graphql.NewObject(graphql.ObjectConfig{
		Name: "Marker",
		Fields: graphql.Fields{
			"location_key": &graphql.Field{Type: graphql.String},
			"coordinate":   &graphql.Field{Type: coordinateType},
			"handle":       &graphql.Field{Type: graphql.String},
			"event_count":  &graphql.Field{Type: graphql.Int},
			"representative_event_id": &graphql.Field{
				Type: graphql.String,
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					if m, ok := p.Source.(domain.MarkerRecord); ok {
						return m.RepresentativeEvent.ID, nil
					}
					return nil, nil
				},
			},
		},
	})

	clusterType := graphql.NewObject(graphql.ObjectConfig{
		Name: "Cluster",
		Fields: graphql.Fields{
			"key":          &graphql.Field{Type: graphql.String},
			"center":       &graphql.Field{Type: coordinateType},
			"marker_count": &graphql.Field{Type: graphql.Int},
			"event_count":  &graphql.Field{Type: graphql.Int},
			"handles":      &graphql.Field{Type: graphql.NewList(graphql.String)},
		},
	})

	queryType := graphql.NewObject(graphql.ObjectConfig{
		Name: "Query",
		Fields: graphql.Fields{
			"searchVenues": &graphql.Field{
				Type:        searchResultType,
				Description: "Search internal venues and external places, deduplicated",
				Args: graphql.FieldConfigArgument{
					"query": &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.String)},
					"lat":   &graphql.ArgumentConfig{Type: graphql.Float},
					"lon":   &graphql.ArgumentConfig{Type: graphql.Float},
					"limit": &graphql.ArgumentConfig{Type: graphql.Int, DefaultValue: 20},
				},
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					query, _ := p.Args["query"].(string)
					limit, _ := p.Args["limit"].(int)
					var center domain.Coordinate
					lat, hasLat := p.Args["lat"].(float64)
					lon, hasLon := p.Args["lon"].(float64)
					if hasLat && hasLon {
						center = domain.Coordinate{Lat: lat, Lon: lon}
					}
					return deps.Search.Search(p.Context, query, center, limit)
				},
			},
			"venue": &graphql.Field{
				Type:        venueType,
				Description: "Get an internal venue by ID",
				Args: graphql.FieldConfigArgument{
					"id": &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.String)},
				},
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					id, _ := p.Args["id"].(string)
					v, err := deps.Venues.GetByID(p.Context, id)
					if errors.Is(err, domain.ErrNotFound) {
						return nil, nil
					}
					if err != nil {
						return nil, err
					}
					return *v, nil
				},
			},
			"markers": &graphql.Field{
				Type:        graphql.NewList(markerType),
				Description: "Live markers ordered by location key",
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					return deps.Markers.Markers(), nil
				},
			},
			"clusters": &graphql.Field{
				Type:        graphql.NewList(clusterType),
				Description: "Live markers aggregated for a viewport",
				Args: graphql.FieldConfigArgument{
					"minLat": &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.Float)},
					"minLon": &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.Float)},
					"maxLat": &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.Float)},
					"maxLon": &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.Float)},
					"zoom":   &graphql.ArgumentConfig{Type: graphql.Int, DefaultValue: 12},
				},
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					b := domain.Bounds{}
					b.MinLat, _ = p.Args["minLat"].(float64)
					b.MinLon, _ = p.Args["minLon"].(float64)
					b.MaxLat, _ = p.Args["maxLat"].(float64)
					b.MaxLon, _ = p.Args["maxLon"].(float64)
					if !b.Valid() {
						return nil, errors.New("invalid bounds")
					}
					zoom, _ := p.Args["zoom"].(int)
					return deps.Clusters.Clusters(b, zoom), nil
				},
			},
		},
	})

	return graphql.NewSchema(graphql.SchemaConfig{
		Query: queryType,
	})
}

// GraphQLHandler serves the GraphQL endpoint.
func GraphQLHandler(deps *Dependencies) fiber.Handler {
	schema, err := buildSchema(deps)
	if err != nil {
		panic("graphql schema build: " + err.Error())
	}

	type gqlRequest struct {
		Query         string                 `json:"query"`
		OperationName string                 `json:"operationName"`
		Variables     map[string]interface{} `json:"variables"`
	}

	return func(c *fiber.Ctx) error {
		var req gqlRequest
		if err := c.BodyParser(&req); err != nil {
			return errBadRequest(c, "invalid request body")
		}

		result := graphql.Do(graphql.Params{
			Schema:         schema,
			RequestString:  req.Query,
			VariableValues: req.Variables,
			OperationName:  req.OperationName,
			Context:        c.UserContext(),
		})
		return c.JSON(result)
	}
}
