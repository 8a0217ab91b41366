package process

import "convrt/internal/services"

func validationError(builder, message string) error {
	return services.New(services.KindValidation, "process."+builder, message)
}
