package service

import (
	"encoding/json"
	"errors"
	"fmt"
	"reflect"
	"strings"

	"price-service/internal/apperror"
	"price-service/internal/dto"
	"price-service/internal/model"

	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"
)

const (
	maxPriceDecimals = 2
	maxMetadataKeys  = 32
	maxMetadataBytes = 4 << 10
)

// newValidator builds a validator that understands decimal.Decimal and stock
// statuses and reports fields by their JSON names.
func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterCustomTypeFunc(func(field reflect.Value) interface{} {
		if d, ok := field.Interface().(decimal.Decimal); ok {
			f, _ := d.Float64()
			return f
		}
		return nil
	}, decimal.Decimal{})
	_ = v.RegisterValidation("stock_status", func(fl validator.FieldLevel) bool {
		return model.StockStatus(fl.Field().String()).Valid()
	})
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// checkPrice validates one price update and fills in defaults. The returned
// error is always an InvalidArgument apperror.
func (s *PriceService) checkPrice(in *dto.PriceInput) error {
	if err := s.validate.Struct(in); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			return apperror.New(apperror.InvalidArgument, describe(verrs[0]))
		}
		return apperror.Wrap(apperror.InvalidArgument, "invalid price update", err)
	}

	if in.Price != nil && in.Price.Exponent() < -maxPriceDecimals && !in.Price.Equal(in.Price.Round(maxPriceDecimals)) {
		return apperror.Newf(apperror.InvalidArgument, "price must have at most %d decimal places", maxPriceDecimals)
	}

	if in.StockStatus == "" {
		in.StockStatus = model.InStock
	}

	if in.Metadata != nil {
		if len(in.Metadata) > maxMetadataKeys {
			return apperror.Newf(apperror.InvalidArgument, "metadata must have at most %d keys", maxMetadataKeys)
		}
		encoded, err := json.Marshal(in.Metadata)
		if err != nil {
			return apperror.Wrap(apperror.InvalidArgument, "metadata must be a JSON object", err)
		}
		if len(encoded) > maxMetadataBytes {
			return apperror.Newf(apperror.InvalidArgument, "metadata must be at most %d bytes", maxMetadataBytes)
		}
	}
	return nil
}

func describe(fe validator.FieldError) string {
	field := fe.Field()
	switch fe.Tag() {
	case "required":
		return field + " is required"
	case "max":
		return fmt.Sprintf("%s must be at most %s characters", field, fe.Param())
	case "gte":
		return field + " must not be negative"
	case "lte":
		return fmt.Sprintf("%s must not exceed %s", field, fe.Param())
	case "stock_status":
		return fmt.Sprintf("%s must be one of: %s, %s, %s", field, model.InStock, model.OutOfStock, model.LimitedStock)
	default:
		return field + " is invalid"
	}
}
