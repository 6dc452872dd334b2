package consumers

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/require"

	"github.com/flowlytix/distribution-backend/internal/lot/repository"
	"github.com/flowlytix/distribution-backend/pkg/database"
	"github.com/flowlytix/distribution-backend/pkg/logger"
	"github.com/flowlytix/distribution-backend/pkg/messaging"
	"github.com/flowlytix/distribution-backend/pkg/testutil"
)

var userColumns = []string{
	"user_id", "email", "name", "role_name", "permissions", "agency_id", "synced_at",
}

func newTestConsumer(t *testing.T) (*UserEventConsumer, *testutil.MockDB) {
	t.Helper()

	mockDB := testutil.NewMockDB(t)
	t.Cleanup(func() { mockDB.Close() })

	log := logger.New("lot-service-test", "test")
	db := database.NewFromSqlx(mockDB.DB, log)

	c := &UserEventConsumer{
		userRepo: repository.NewUserRepository(db),
		logger:   log,
	}
	return c, mockDB
}

func userEvent(t *testing.T, eventType string, data interface{}) *messaging.Event {
	t.Helper()
	event, err := messaging.NewEvent(eventType, "user-service", "", data)
	require.NoError(t, err)
	return event
}

func TestHandleUserCreated(t *testing.T) {
	c, mockDB := newTestConsumer(t)
	factory := testutil.NewFixtureFactory()
	user := factory.User("agency-1", testutil.WithRole("operator"),
		testutil.WithPermissions("lots.read", "lots.update"))

	mockDB.ExpectExec("INSERT INTO user_directory").
		WithArgs(user.UserID, user.Email, user.Name, "operator", sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))

	event := userEvent(t, messaging.EventUserCreated, messaging.UserCreatedEvent{
		UserID:      user.UserID,
		Email:       user.Email,
		Name:        user.Name,
		RoleName:    user.RoleName,
		Permissions: user.Permissions,
		AgencyID:    user.AgencyID,
	})

	require.NoError(t, c.handleUserCreated(context.Background(), event))
	mockDB.ExpectationsWereMet(t)
}

func TestHandleUserUpdated_PatchesChangedFields(t *testing.T) {
	c, mockDB := newTestConsumer(t)
	factory := testutil.NewFixtureFactory()
	user := factory.AdminUser("agency-1")
	newEmail := "renamed@flowlytix.io"

	mockDB.ExpectQuery("SELECT * FROM user_directory WHERE user_id = $1").
		WithArgs(user.UserID).
		WillReturnRows(testutil.MockRows(userColumns...).AddRow(
			user.UserID, user.Email, user.Name, user.RoleName, "{*}", user.AgencyID, time.Now().UTC(),
		))
	mockDB.ExpectExec("INSERT INTO user_directory").
		WithArgs(user.UserID, newEmail, user.Name, user.RoleName, sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))

	event := userEvent(t, messaging.EventUserUpdated, messaging.UserUpdatedEvent{
		UserID: user.UserID,
		Email:  &newEmail,
	})

	require.NoError(t, c.handleUserUpdated(context.Background(), event))
	mockDB.ExpectationsWereMet(t)
}

func TestHandleUserUpdated_UnknownUserIsIgnored(t *testing.T) {
	c, mockDB := newTestConsumer(t)

	mockDB.ExpectQuery("SELECT * FROM user_directory WHERE user_id = $1").
		WithArgs("ghost").
		WillReturnError(sql.ErrNoRows)

	event := userEvent(t, messaging.EventUserUpdated, messaging.UserUpdatedEvent{UserID: "ghost"})

	require.NoError(t, c.handleUserUpdated(context.Background(), event))
	mockDB.ExpectationsWereMet(t)
}

func TestHandleUserDeleted(t *testing.T) {
	c, mockDB := newTestConsumer(t)
	factory := testutil.NewFixtureFactory()
	user := factory.User("agency-1")

	mockDB.ExpectExec("DELETE FROM user_directory WHERE user_id = $1").
		WithArgs(user.UserID).
		WillReturnResult(sqlmock.NewResult(0, 1))

	event := userEvent(t, messaging.EventUserDeleted, messaging.UserDeletedEvent{UserID: user.UserID})

	require.NoError(t, c.handleUserDeleted(context.Background(), event))
	mockDB.ExpectationsWereMet(t)
}
