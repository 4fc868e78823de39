package testfixtures

import (
	"time"

	"go.uber.org/zap"

	"github.com/example/office-planner/internal/application"
	"github.com/example/office-planner/internal/locking"
	"github.com/example/office-planner/internal/persistence"
	"github.com/example/office-planner/internal/recurrence"
)

// FastArgon2idParams keeps password hashing cheap in tests.
var FastArgon2idParams = application.Argon2idParams{
	Memory:      1024,
	Iterations:  1,
	Parallelism: 1,
	SaltLength:  8,
	KeyLength:   16,
}

// TestTokenSecret signs tokens issued by factory-built services.
const TestTokenSecret = "test-secret"

// ServiceFactory assists tests with constructing application services using
// deterministic identifiers and clocks.
type ServiceFactory struct {
	Clock       *Clock
	IDGenerator *IDGenerator
	Rules       application.PlacementRules
	Logger      *zap.Logger
}

// ServiceFactoryOption configures a ServiceFactory instance.
type ServiceFactoryOption func(*ServiceFactory)

// NewServiceFactory constructs a ServiceFactory with defaults.
func NewServiceFactory(opts ...ServiceFactoryOption) *ServiceFactory {
	factory := &ServiceFactory{
		Clock:       NewClock(time.Time{}),
		IDGenerator: NewIDGenerator("id"),
		Rules:       application.DefaultPlacementRules(),
		Logger:      zap.NewNop(),
	}
	for _, opt := range opts {
		opt(factory)
	}
	if factory.Clock == nil {
		factory.Clock = NewClock(time.Time{})
	}
	if factory.IDGenerator == nil {
		factory.IDGenerator = NewIDGenerator("id")
	}
	return factory
}

// WithClock overrides the clock used by the factory.
func WithClock(clock *Clock) ServiceFactoryOption {
	return func(factory *ServiceFactory) {
		factory.Clock = clock
	}
}

// WithIDGenerator overrides the identifier generator used by the factory.
func WithIDGenerator(generator *IDGenerator) ServiceFactoryOption {
	return func(factory *ServiceFactory) {
		factory.IDGenerator = generator
	}
}

// WithRules overrides the placement policy.
func WithRules(rules application.PlacementRules) ServiceFactoryOption {
	return func(factory *ServiceFactory) {
		factory.Rules = rules
	}
}

// WithLogger routes service logs to logger.
func WithLogger(logger *zap.Logger) ServiceFactoryOption {
	return func(factory *ServiceFactory) {
		factory.Logger = logger
	}
}

// NewDeskService builds a desk service over store.
func (f *ServiceFactory) NewDeskService(store persistence.Store) *application.DeskService {
	return application.NewDeskServiceWithLogger(store, f.Rules, f.IDGenerator.Sequence("desk"), f.Clock.NowFunc(), f.Logger)
}

// NewEmployeeService builds an employee service over store and blobs.
func (f *ServiceFactory) NewEmployeeService(store persistence.Store, blobs application.BlobStore) *application.EmployeeService {
	return application.NewEmployeeServiceWithLogger(store, blobs, f.Rules, f.IDGenerator.Sequence("employee"), f.Clock.NowFunc(), f.Logger)
}

// NewSkillService builds a skill service over store.
func (f *ServiceFactory) NewSkillService(store persistence.Store) *application.SkillService {
	return application.NewSkillService(store.Skills(), f.IDGenerator.Sequence("skill"), f.Clock.NowFunc(), f.Logger)
}

// NewGalleryService builds a gallery service over store and blobs.
func (f *ServiceFactory) NewGalleryService(store persistence.Store, blobs application.BlobStore) *application.GalleryService {
	return application.NewGalleryService(store, blobs, f.IDGenerator.Sequence("image"), f.Clock.NowFunc(), f.Logger)
}

// NewReservationService builds a reservation service with an in-process locker.
func (f *ServiceFactory) NewReservationService(store persistence.Store, maxSeries int) *application.ReservationService {
	return application.NewReservationService(
		store,
		locking.NewLocal(),
		f.Rules,
		recurrence.NewEngine(time.UTC),
		maxSeries,
		f.IDGenerator.Sequence("reservation"),
		f.Clock.NowFunc(),
		f.Logger,
	)
}

// PasswordHasher returns a hasher using FastArgon2idParams.
func (f *ServiceFactory) PasswordHasher() application.PasswordHasher {
	return application.NewPasswordHasher(FastArgon2idParams)
}

// NewUserService builds a user service over store.
func (f *ServiceFactory) NewUserService(store persistence.Store) *application.UserService {
	return application.NewUserService(store, f.PasswordHasher(), f.IDGenerator.Sequence("user"), f.Clock.NowFunc(), f.Logger)
}

// NewGroupService builds a group service over store.
func (f *ServiceFactory) NewGroupService(store persistence.Store) *application.GroupService {
	return application.NewGroupService(store.Groups(), f.Clock.NowFunc(), f.Logger)
}

// NewTokenIssuer signs with TestTokenSecret using the factory clock.
func (f *ServiceFactory) NewTokenIssuer(accessTTL, refreshTTL time.Duration) *application.TokenIssuer {
	return application.NewTokenIssuer(TestTokenSecret, accessTTL, refreshTTL, f.IDGenerator.Sequence("jti"), f.Clock.NowFunc())
}

// NewAuthService builds an auth service with default token lifetimes.
func (f *ServiceFactory) NewAuthService(store persistence.Store) *application.AuthService {
	return application.NewAuthService(store.Users(), f.PasswordHasher(), f.NewTokenIssuer(0, 0), f.Logger)
}
