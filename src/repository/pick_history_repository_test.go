package repository

import (
	"context"
	"regexp"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"

	"cryptobroker/src/model"
)

func TestPickHistoryRepository_LastScores(t *testing.T) {
	db, mock := newMockDB(t)
	repo := (&PickHistoryRepository{}).WithDB(db)

	rows := sqlmock.NewRows([]string{"id", "signal_id", "coin_id", "symbol", "score"}).
		AddRow(12, "sig-3", "solana", "SOL", 0.61).
		AddRow(8, "sig-2", "solana", "SOL", 0.72).
		AddRow(3, "sig-1", "solana", "SOL", 0.80)

	mock.ExpectQuery(regexp.QuoteMeta(`SELECT * FROM "pick_histories" WHERE coin_id = $1 ORDER BY id DESC LIMIT $2`)).
		WithArgs("solana", 3).
		WillReturnRows(rows)

	scores, err := repo.LastScores(context.Background(), "solana", 3)
	if err != nil {
		t.Fatalf("LastScores failed: %v", err)
	}
	want := []float64{0.61, 0.72, 0.80}
	if len(scores) != len(want) {
		t.Fatalf("expected %d scores, got %d", len(want), len(scores))
	}
	for i := range want {
		if scores[i] != want[i] {
			t.Fatalf("score[%d]=%v want %v", i, scores[i], want[i])
		}
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet sqlmock expectations: %v", err)
	}
}

func TestPickHistoryRepository_LastScores_ZeroLookback(t *testing.T) {
	db, _ := newMockDB(t)
	repo := (&PickHistoryRepository{}).WithDB(db)

	scores, err := repo.LastScores(context.Background(), "solana", 0)
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if len(scores) != 0 {
		t.Fatalf("expected no scores, got %v", scores)
	}
}

func TestPickHistoryRepository_SaveSignalPicks_SkipsWildcards(t *testing.T) {
	db, mock := newMockDB(t)
	repo := (&PickHistoryRepository{}).WithDB(db)

	sig := &model.Signal{
		ID:     "sig-9",
		Regime: model.RegimeRiskOn,
		Picks: []model.Pick{
			{Candidate: model.Candidate{CoinID: "bitcoin", Symbol: "BTC"}, Score: 0.8},
			{Candidate: model.Candidate{CoinID: "newscoin", Symbol: "NEW"}, Wildcard: true},
		},
	}

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta(`INSERT INTO "pick_histories"`)).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(1))
	mock.ExpectCommit()

	if err := repo.SaveSignalPicks(context.Background(), sig); err != nil {
		t.Fatalf("SaveSignalPicks failed: %v", err)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet sqlmock expectations: %v", err)
	}
}

func TestPickHistoryRepository_SaveSignalPicks_OnlyWildcardsIsNoop(t *testing.T) {
	db, _ := newMockDB(t)
	repo := (&PickHistoryRepository{}).WithDB(db)

	sig := &model.Signal{
		ID: "sig-10",
		Picks: []model.Pick{
			{Candidate: model.Candidate{CoinID: "newscoin"}, Wildcard: true},
		},
	}

	if err := repo.SaveSignalPicks(context.Background(), sig); err != nil {
		t.Fatalf("expected no-op, got %v", err)
	}
}
