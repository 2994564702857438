package api

import (
	"context"
	"encoding/json"
	"errors"
	"strconv"

	"github.com/sirupsen/logrus"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"

	"storefront-service/internal/catalog"
	"storefront-service/internal/domain"
)

// CatalogServiceName is the fully qualified gRPC service name.
const CatalogServiceName = "storefront.v1.Catalog"

// CatalogServer is the server API of storefront.v1.Catalog. Requests and responses are
// google.protobuf.Struct messages shaped like the HTTP JSON bodies.
type CatalogServer interface {
	GetProduct(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error)
	ListProducts(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error)
}

// CatalogServiceDesc describes storefront.v1.Catalog for grpc.Server.RegisterService.
var CatalogServiceDesc = grpc.ServiceDesc{
	ServiceName: CatalogServiceName,
	HandlerType: (*CatalogServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "GetProduct", Handler: catalogGetProductHandler},
		{MethodName: "ListProducts", Handler: catalogListProductsHandler},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "storefront/v1/catalog.proto",
}

// RegisterCatalogServer registers srv on s.
func RegisterCatalogServer(s grpc.ServiceRegistrar, srv CatalogServer) {
	s.RegisterService(&CatalogServiceDesc, srv)
}

func catalogGetProductHandler(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
	in := new(structpb.Struct)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(CatalogServer).GetProduct(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: "/" + CatalogServiceName + "/GetProduct"}
	handler := func(ctx context.Context, req interface{}) (interface{}, error) {
		return srv.(CatalogServer).GetProduct(ctx, req.(*structpb.Struct))
	}
	return interceptor(ctx, in, info, handler)
}

func catalogListProductsHandler(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
	in := new(structpb.Struct)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(CatalogServer).ListProducts(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: "/" + CatalogServiceName + "/ListProducts"}
	handler := func(ctx context.Context, req interface{}) (interface{}, error) {
		return srv.(CatalogServer).ListProducts(ctx, req.(*structpb.Struct))
	}
	return interceptor(ctx, in, info, handler)
}

// GRPCHandler implements CatalogServer over the product query layer.
type GRPCHandler struct {
	products ProductQuerier
	log      logrus.FieldLogger
}

// NewGRPCHandler creates a new GRPCHandler.
func NewGRPCHandler(products ProductQuerier, log logrus.FieldLogger) *GRPCHandler {
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &GRPCHandler{products: products, log: log.WithField("component", "grpc")}
}

// --- Helper: Error Mapping ---
func (s *GRPCHandler) mapCatalogErrorToGrpcStatus(err error, method string) error {
	if err == nil {
		return nil
	}
	switch {
	case errors.Is(err, catalog.ErrProductNotFound):
		return status.Error(codes.NotFound, err.Error())
	case errors.Is(err, catalog.ErrCatalogUnavailable):
		s.log.WithError(err).WithField("method", method).Warn("catalog unavailable")
		return status.Error(codes.Unavailable, err.Error())
	case errors.Is(err, context.Canceled):
		return status.Error(codes.Canceled, err.Error())
	case errors.Is(err, context.DeadlineExceeded):
		return status.Error(codes.DeadlineExceeded, err.Error())
	default:
		s.log.WithError(err).WithField("method", method).Error("catalog request failed")
		return status.Errorf(codes.Internal, "%s failed: %v", method, err)
	}
}

// GetProduct expects {"id": string or number, "gender"?: string} and returns {"product": {...}}.
func (s *GRPCHandler) GetProduct(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	fields := req.GetFields()
	id := fields["id"].GetStringValue()
	if n, ok := fields["id"].GetKind().(*structpb.Value_NumberValue); ok {
		id = strconv.FormatFloat(n.NumberValue, 'f', -1, 64)
	}
	if id == "" {
		return nil, status.Error(codes.InvalidArgument, "id is required")
	}
	gender, ok := domain.ParseGender(fields["gender"].GetStringValue())
	if !ok {
		return nil, status.Error(codes.InvalidArgument, "gender must be men, women or kids")
	}

	product, err := s.products.GetByID(ctx, id, gender)
	if err != nil {
		return nil, s.mapCatalogErrorToGrpcStatus(err, "GetProduct")
	}
	pv, err := toValue(product)
	if err != nil {
		s.log.WithError(err).WithField("product_id", id).Error("failed to convert product")
		return nil, status.Errorf(codes.Internal, "failed to process product %s", id)
	}
	return &structpb.Struct{Fields: map[string]*structpb.Value{"product": pv}}, nil
}

// ListProducts accepts the filter keys of GET /api/v1/products, with numbers as numbers,
// tags as a list and flags as booleans. It returns {"products", "pagination", "degraded"}.
func (s *GRPCHandler) ListProducts(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	f, err := filterFromStruct(req)
	if err != nil {
		return nil, status.Error(codes.InvalidArgument, err.Error())
	}

	page, err := s.products.Query(ctx, f)
	if err != nil {
		return nil, s.mapCatalogErrorToGrpcStatus(err, "ListProducts")
	}
	out, err := toValue(ProductListResponse{
		Data: page.Items,
		Pagination: PaginationInfo{
			Page:       page.Page,
			Limit:      page.PerPage,
			TotalItems: page.Total,
			TotalPages: page.TotalPages,
		},
		Degraded: page.Degraded,
	})
	if err != nil {
		s.log.WithError(err).Error("failed to convert product list")
		return nil, status.Error(codes.Internal, "failed to process product list")
	}
	resp := out.GetStructValue()
	// "products" reads better than "data" for RPC clients
	resp.Fields["products"] = resp.Fields["data"]
	delete(resp.Fields, "data")
	return resp, nil
}

func filterFromStruct(req *structpb.Struct) (catalog.Filter, error) {
	fields := req.GetFields()
	var f catalog.Filter

	gender, ok := domain.ParseGender(fields["gender"].GetStringValue())
	if !ok {
		return f, errors.New("gender must be men, women or kids")
	}
	f.Gender = gender
	f.CategoryID = fields["category_id"].GetStringValue()
	f.CatalogueID = fields["catalogue_id"].GetStringValue()
	f.Brand = fields["brand"].GetStringValue()
	if v, ok := fields["min_price"]; ok {
		p := v.GetNumberValue()
		f.MinPrice = &p
	}
	if v, ok := fields["max_price"]; ok {
		p := v.GetNumberValue()
		f.MaxPrice = &p
	}
	if f.MinPrice != nil && f.MaxPrice != nil && *f.MinPrice > *f.MaxPrice {
		return f, errors.New("min_price cannot exceed max_price")
	}
	for _, t := range fields["tags"].GetListValue().GetValues() {
		f.Tags = append(f.Tags, t.GetStringValue())
	}
	f.Featured = fields["is_featured"].GetBoolValue()
	f.InStockOnly = fields["in_stock_only"].GetBoolValue()
	f.Page = int(fields["page"].GetNumberValue())
	f.PerPage = int(fields["per_page"].GetNumberValue())
	return f, nil
}

// toValue converts v through its JSON form, so RPC responses match the HTTP bodies.
func toValue(v any) (*structpb.Value, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	var generic any
	if err := json.Unmarshal(b, &generic); err != nil {
		return nil, err
	}
	return structpb.NewValue(generic)
}
