package mocks

import (
	"context"
	"fmt"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"pilotage-service/internal/models"
)

func TestRepositoryMocksRecordTxArg(t *testing.T) {
	db, sqlMock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	sqlMock.ExpectBegin()
	sqlMock.ExpectCommit()
	tx, err := db.Begin()
	require.NoError(t, err)

	repo := new(MockInvoiceRepository)
	repo.On("UpsertInvoice", mock.Anything, mock.AnythingOfType("mocks.TxArg"), mock.Anything).Return(nil)

	require.NoError(t, repo.UpsertInvoice(context.Background(), tx, &models.InvoiceRecord{}))
	require.NoError(t, tx.Commit())

	recorded := repo.Calls[0].Arguments.Get(1).(TxArg)
	assert.Same(t, tx, recorded.Unwrap())
	assert.Equal(t, "*sql.Tx", fmt.Sprintf("%v", recorded))
	assert.Equal(t, "<nil *sql.Tx>", Tx(nil).String())
	repo.AssertExpectations(t)
	assert.NoError(t, sqlMock.ExpectationsWereMet())
}
