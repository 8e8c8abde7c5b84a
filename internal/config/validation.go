package config

import (
	stderrors "errors"
	"fmt"
	"path/filepath"
	"reflect"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"

	"git.home.luguber.info/inful/docsync/internal/foundation/errors"
)

var (
	validatorOnce     sync.Once
	validatorInstance *validator.Validate
)

func structValidator() *validator.Validate {
	validatorOnce.Do(func() {
		validatorInstance = validator.New()
		validatorInstance.RegisterTagNameFunc(func(fld reflect.StructField) string {
			name := strings.SplitN(fld.Tag.Get("yaml"), ",", 2)[0]
			if name == "-" {
				return ""
			}
			return name
		})
	})
	return validatorInstance
}

// Validate checks struct constraints and the cross-field rules that tags cannot express.
func Validate(cfg *Config) error {
	if err := structValidator().Struct(cfg); err != nil {
		var fieldErrs validator.ValidationErrors
		if stderrors.As(err, &fieldErrs) && len(fieldErrs) > 0 {
			first := fieldErrs[0]
			return errors.ConfigError(fmt.Sprintf("invalid configuration: %s failed %q", first.Namespace(), first.Tag())).
				WithContext("field", first.Namespace()).
				WithContext("violations", len(fieldErrs)).
				Build()
		}
		return errors.WrapError(err, errors.CategoryConfig, "invalid configuration").Fatal().Build()
	}

	if cfg.Narrative.Directory != "" && samePath(cfg.Narrative.Directory, cfg.Output.Directory) {
		return errors.ConfigError("output directory must differ from the narrative directory").
			WithContext("directory", cfg.Output.Directory).
			Build()
	}
	if samePath(cfg.Source.Directory, cfg.Output.Directory) {
		return errors.ConfigError("output directory must differ from the source directory").
			WithContext("directory", cfg.Output.Directory).
			Build()
	}
	if cfg.Publish.Enabled && (cfg.Publish.AccessKey == "") != (cfg.Publish.SecretKey == "") {
		return errors.ConfigError("publish access_key and secret_key must be set together").Build()
	}
	return nil
}

func samePath(a, b string) bool {
	return filepath.Clean(a) == filepath.Clean(b)
}
