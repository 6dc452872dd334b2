package service

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"

	"github.com/flowlytix/distribution-backend/internal/lot/domain"
	"github.com/flowlytix/distribution-backend/pkg/logger"
	"github.com/flowlytix/distribution-backend/pkg/messaging"
	"github.com/flowlytix/distribution-backend/pkg/testutil"
)

func TestExpirySweep_PromotesOverdueLots(t *testing.T) {
	svc, mockDB, pub := newTestService(t)
	sweeper := NewExpirySweeper(svc, time.Hour, logger.New("lot-service-test", "test"))

	expiry := time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)
	overdue := testutil.MockRows(lotColumns...).AddRow(
		testLotID, "LOT-2024-001", nil, testProductID, testAgencyID,
		time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC), expiry, 1000, 400,
		0, string(domain.StatusActive), nil, nil, nil,
		3, testUserID, nil, testNow, testNow,
		nil, nil,
	)
	reread := testutil.MockRows(lotColumns...).AddRow(
		testLotID, "LOT-2024-001", nil, testProductID, testAgencyID,
		time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC), expiry, 1000, 400,
		0, string(domain.StatusActive), nil, nil, nil,
		3, testUserID, nil, testNow, testNow,
		nil, nil,
	)

	// Candidate scan, then re-read and promote under the system actor.
	// No user directory lookup happens for system-initiated sweeps.
	mockDB.ExpectQuery("SELECT * FROM lot_batches").WillReturnRows(overdue)
	expectGetLot(mockDB, reread)
	mockDB.ExpectBegin()
	mockDB.ExpectExec("UPDATE lot_batches SET").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mockDB.ExpectExec("INSERT INTO lot_quantity_history").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mockDB.ExpectCommit()

	sweeper.runSweep(context.Background())

	pub.AssertEventPublished(t, messaging.EventLotExpired)
	mockDB.ExpectationsWereMet(t)
}

func TestExpirySweep_SkipsLostRaces(t *testing.T) {
	svc, mockDB, pub := newTestService(t)
	sweeper := NewExpirySweeper(svc, time.Hour, logger.New("lot-service-test", "test"))

	expiry := time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)
	overdue := testutil.MockRows(lotColumns...).AddRow(
		testLotID, "LOT-2024-001", nil, testProductID, testAgencyID,
		time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC), expiry, 1000, 400,
		0, string(domain.StatusActive), nil, nil, nil,
		3, testUserID, nil, testNow, testNow,
		nil, nil,
	)

	// The lot disappears between the scan and the re-read. The sweep
	// moves on without failing.
	mockDB.ExpectQuery("SELECT * FROM lot_batches").WillReturnRows(overdue)
	expectGetLot(mockDB, testutil.MockRows(lotColumns...))

	sweeper.runSweep(context.Background())

	pub.AssertNoEventsPublished(t)
	mockDB.ExpectationsWereMet(t)
}

func TestExpirySweep_StartStop(t *testing.T) {
	svc, mockDB, _ := newTestService(t)
	sweeper := NewExpirySweeper(svc, time.Hour, logger.New("lot-service-test", "test"))

	// The initial sweep finds nothing to do
	mockDB.ExpectQuery("SELECT * FROM lot_batches").
		WillReturnRows(testutil.MockRows(lotColumns...))

	sweeper.Start(context.Background())
	testutil.RequireEventually(t, func() bool {
		return mockDB.Mock.ExpectationsWereMet() == nil
	}, 2*time.Second, 10*time.Millisecond, "initial sweep should run")
	sweeper.Stop()
}
