package api

import (
	"context"
	"net"
	"testing"

	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/status"
	"google.golang.org/grpc/test/bufconn"
	"google.golang.org/protobuf/types/known/structpb"

	"storefront-service/internal/catalog"
	"storefront-service/internal/domain"
)

func newTestGRPCHandler(t *testing.T) *GRPCHandler {
	t.Helper()
	svc, _ := newTestService(t)
	logger, _ := test.NewNullLogger()
	return NewGRPCHandler(svc, logger)
}

func mustStruct(t *testing.T, m map[string]any) *structpb.Struct {
	t.Helper()
	s, err := structpb.NewStruct(m)
	require.NoError(t, err)
	return s
}

func TestGRPCHandler_GetProduct(t *testing.T) {
	h := newTestGRPCHandler(t)
	ctx := context.Background()

	resp, err := h.GetProduct(ctx, mustStruct(t, map[string]any{"id": "m2", "gender": "men"}))
	require.NoError(t, err)
	product := resp.GetFields()["product"].GetStructValue().GetFields()
	assert.Equal(t, "m2", product["id"].GetStringValue())
	assert.Equal(t, "White", product["color"].GetStringValue())
	assert.Equal(t, 3199.0, product["price"].GetNumberValue())
	assert.Len(t, product["color_variants"].GetListValue().GetValues(), 2)

	_, err = h.GetProduct(ctx, mustStruct(t, map[string]any{"id": "nope"}))
	assert.Equal(t, codes.NotFound, status.Code(err))

	_, err = h.GetProduct(ctx, mustStruct(t, map[string]any{}))
	assert.Equal(t, codes.InvalidArgument, status.Code(err))

	_, err = h.GetProduct(ctx, mustStruct(t, map[string]any{"id": "m1", "gender": "aliens"}))
	assert.Equal(t, codes.InvalidArgument, status.Code(err))
}

func TestGRPCHandler_GetProduct_NumericID(t *testing.T) {
	q := new(MockProductQuerier)
	q.On("GetByID", mock.Anything, "101", domain.Gender("")).Return(domain.Product{ID: "101", Tags: []string{}}, nil).Once()
	logger, _ := test.NewNullLogger()
	h := NewGRPCHandler(q, logger)

	resp, err := h.GetProduct(context.Background(), mustStruct(t, map[string]any{"id": 101}))
	require.NoError(t, err)
	assert.Equal(t, "101", resp.GetFields()["product"].GetStructValue().GetFields()["id"].GetStringValue())
	q.AssertExpectations(t)
}

func TestGRPCHandler_ListProducts(t *testing.T) {
	h := newTestGRPCHandler(t)

	resp, err := h.ListProducts(context.Background(), mustStruct(t, map[string]any{
		"gender":   "men",
		"tags":     []any{"new"},
		"per_page": 10,
	}))
	require.NoError(t, err)
	fields := resp.GetFields()
	products := fields["products"].GetListValue().GetValues()
	require.Len(t, products, 1)
	assert.Equal(t, "m1", products[0].GetStructValue().GetFields()["id"].GetStringValue())
	assert.NotContains(t, fields, "data")

	pagination := fields["pagination"].GetStructValue().GetFields()
	assert.Equal(t, 1.0, pagination["total_items"].GetNumberValue())
	assert.Equal(t, 10.0, pagination["limit"].GetNumberValue())
	assert.False(t, fields["degraded"].GetBoolValue())

	_, err = h.ListProducts(context.Background(), mustStruct(t, map[string]any{"min_price": 50, "max_price": 10}))
	assert.Equal(t, codes.InvalidArgument, status.Code(err))
}

func TestGRPCHandler_ErrorMapping(t *testing.T) {
	tests := []struct {
		err  error
		want codes.Code
	}{
		{catalog.ErrCatalogUnavailable, codes.Unavailable},
		{context.Canceled, codes.Canceled},
		{context.DeadlineExceeded, codes.DeadlineExceeded},
		{assert.AnError, codes.Internal},
	}
	for _, tt := range tests {
		q := new(MockProductQuerier)
		q.On("Query", mock.Anything, mock.Anything).Return(catalog.Page{}, tt.err)
		logger, _ := test.NewNullLogger()
		h := NewGRPCHandler(q, logger)

		_, err := h.ListProducts(context.Background(), &structpb.Struct{})
		assert.Equal(t, tt.want, status.Code(err), tt.err.Error())
	}
}

func TestFilterFromStruct(t *testing.T) {
	f, err := filterFromStruct(mustStruct(t, map[string]any{
		"gender":        "Women",
		"category_id":   "flats",
		"catalogue_id":  "C7",
		"brand":         "Lumen",
		"min_price":     0,
		"tags":          []any{"sale", "new"},
		"is_featured":   true,
		"in_stock_only": true,
		"page":          2,
	}))
	require.NoError(t, err)
	assert.Equal(t, catalog.Filter{
		Gender:      domain.GenderWomen,
		CategoryID:  "flats",
		CatalogueID: "C7",
		Brand:       "Lumen",
		MinPrice:    PtrTo(0.0),
		Tags:        []string{"sale", "new"},
		Featured:    true,
		InStockOnly: true,
		Page:        2,
	}, f)

	f, err = filterFromStruct(nil)
	require.NoError(t, err)
	assert.Equal(t, catalog.Filter{}, f)
}

func TestCatalogService_OverGRPC(t *testing.T) {
	lis := bufconn.Listen(1 << 20)
	s := grpc.NewServer()
	RegisterCatalogServer(s, newTestGRPCHandler(t))
	go func() { _ = s.Serve(lis) }()
	t.Cleanup(s.Stop)

	conn, err := grpc.NewClient("passthrough:///bufnet",
		grpc.WithContextDialer(func(ctx context.Context, _ string) (net.Conn, error) { return lis.DialContext(ctx) }),
		grpc.WithTransportCredentials(insecure.NewCredentials()),
	)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })

	ctx := context.Background()
	out := new(structpb.Struct)
	err = conn.Invoke(ctx, "/"+CatalogServiceName+"/GetProduct", mustStruct(t, map[string]any{"id": "w1"}), out)
	require.NoError(t, err)
	assert.Equal(t, "Flat", out.GetFields()["product"].GetStructValue().GetFields()["name"].GetStringValue())

	err = conn.Invoke(ctx, "/"+CatalogServiceName+"/GetProduct", mustStruct(t, map[string]any{"id": "ghost"}), out)
	assert.Equal(t, codes.NotFound, status.Code(err))

	list := new(structpb.Struct)
	err = conn.Invoke(ctx, "/"+CatalogServiceName+"/ListProducts", &structpb.Struct{}, list)
	require.NoError(t, err)
	assert.Len(t, list.GetFields()["products"].GetListValue().GetValues(), 3)
}
