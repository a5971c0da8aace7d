package validator

import (
	"reflect"
	"strings"

	"github.com/fieldmap-service/internal/basemap"
	"github.com/go-playground/validator/v10"
)

var validate *validator.Validate

func init() {
	validate = validator.New()

	// В ошибках имена полей как в запросе: json, затем query
	validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
		for _, tag := range []string{"json", "query"} {
			name := strings.SplitN(fld.Tag.Get(tag), ",", 2)[0]
			if name == "-" {
				return ""
			}
			if name != "" {
				return name
			}
		}
		return fld.Name
	})

	// zooms: "12", "10-14" или "10,12,14" в пределах 0..MaxZoom
	_ = validate.RegisterValidation("zooms", func(fl validator.FieldLevel) bool {
		_, err := basemap.ParseZooms(fl.Field().String())
		return err == nil
	})
}

// Validate - валидация структуры
func Validate(s interface{}) error {
	return validate.Struct(s)
}
