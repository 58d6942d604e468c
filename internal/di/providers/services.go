package providers

import (
	"github.com/samber/do/v2"

	"github.com/eventsphere/eventsphere-server/internal/codegen"
	"github.com/eventsphere/eventsphere-server/internal/config"
	"github.com/eventsphere/eventsphere-server/internal/logger"
	"github.com/eventsphere/eventsphere-server/internal/ratelimit"
	"github.com/eventsphere/eventsphere-server/internal/service"
	"github.com/eventsphere/eventsphere-server/internal/validation"
)

// ProvideValidator provides the shared input validator.
func ProvideValidator(i do.Injector) (*validation.Validator, error) {
	return validation.New(), nil
}

// RedeemLimiterHandle wraps the per-user check-in limiter with shutdown capability.
type RedeemLimiterHandle struct {
	*ratelimit.KeyedRateLimiter
}

// Shutdown implements do.Shutdownable.
func (h *RedeemLimiterHandle) Shutdown() error {
	h.Stop()
	return nil
}

// ProvideRedeemLimiter provides the check-in redemption limiter.
func ProvideRedeemLimiter(i do.Injector) (*RedeemLimiterHandle, error) {
	cfg := do.MustInvoke[*config.Config](i)
	return &RedeemLimiterHandle{
		KeyedRateLimiter: ratelimit.New(cfg.CheckIn.RedeemRate, cfg.CheckIn.RedeemBurst),
	}, nil
}

// ProvideEventService provides the event lifecycle service.
func ProvideEventService(i do.Injector) (*service.EventService, error) {
	cfg := do.MustInvoke[*config.Config](i)
	storeHandle := do.MustInvoke[*StoreHandle](i)
	blobHandle := do.MustInvoke[*BlobStoreHandle](i)
	indexHandle := do.MustInvoke[*SearchIndexHandle](i)
	v := do.MustInvoke[*validation.Validator](i)
	log := do.MustInvoke[*logger.Logger](i)

	svc := service.NewEventService(storeHandle.Store, blobHandle.Store, indexHandle.Index, v, log.Logger)
	svc.SetPhotoLimit(cfg.Photos.MaxBytes)
	return svc, nil
}

// ProvideAccessService provides invites, joins and roster management.
func ProvideAccessService(i do.Injector) (*service.AccessService, error) {
	storeHandle := do.MustInvoke[*StoreHandle](i)
	indexHandle := do.MustInvoke[*SearchIndexHandle](i)
	log := do.MustInvoke[*logger.Logger](i)

	return service.NewAccessService(storeHandle.Store, indexHandle.Index, codegen.Crypto{}, log.Logger), nil
}

// ProvideAttendanceService provides check-in issuing and redemption.
func ProvideAttendanceService(i do.Injector) (*service.AttendanceService, error) {
	storeHandle := do.MustInvoke[*StoreHandle](i)
	limiter := do.MustInvoke[*RedeemLimiterHandle](i)
	log := do.MustInvoke[*logger.Logger](i)

	return service.NewAttendanceService(storeHandle.Store, codegen.Crypto{}, limiter.KeyedRateLimiter, log.Logger), nil
}
