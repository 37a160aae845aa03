package testutil

import (
	"fmt"
	"time"

	"github.com/Veraticus/transcat/internal/model"
)

// Fixture is a named historical corpus.
type Fixture struct {
	Name        string
	Description string
	Kind        model.Kind
	rows        []fixtureRow
}

type fixtureRow struct {
	description string
	category    string
	amount      string
}

// BaseDate is the operation date of every fixture row.
var BaseDate = time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)

// Predefined fixtures.
var (
	// FixtureGroceries holds Warsaw card payments in three categories.
	FixtureGroceries = &Fixture{
		Name:        "Groceries",
		Description: "Card settlements at Warsaw shops",
		Kind:        model.KindCardSettlement,
		rows: []fixtureRow{
			{"Zabka Z1234 K.1 Warszawa", "Zabka Nano", "-12,99"},
			{"ZABKA NANO WARSZAWA", "Zabka Nano", "-8,49"},
			{"Zabka NANO Mokotow Warszawa", "Zabka Nano", "-15,00"},
			{"CARREFOUR EXPRESS WARSZAWA", "Carrefour", "-45,20"},
			{"CARREFOUR HIPERMARKET BEMOWO", "Carrefour", "-230,10"},
			{"Carrefour Market Warszawa", "Carrefour", "-67,80"},
			{"Leroy Merlin Polska Warszawa", "Leroy Merlin", "-320,00"},
			{"LEROY MERLIN BIELANY", "Leroy Merlin", "-99,99"},
			{"Leroy Merlin Warszawa Targowek", "Leroy Merlin", "-54,30"},
		},
	}

	// FixtureTransfers holds route descriptions of transfers and increases.
	FixtureTransfers = &Fixture{
		Name:        "Transfers",
		Description: "Recurring transfers between known parties",
		Kind:        model.KindTransfer,
		rows: []fixtureRow{
			{"Czynsz marzec@Wspolnota Mieszkaniowa->PL61109010140000071219812874", "Rent", "-1800,00"},
			{"Czynsz kwiecien@Wspolnota Mieszkaniowa->PL61109010140000071219812874", "Rent", "-1800,00"},
			{"Wynagrodzenie@ACME Sp. z o.o.->PL27114020040000300201355387", "Salary", "9500,00"},
			{"Wynagrodzenie premia@ACME Sp. z o.o.->PL27114020040000300201355387", "Salary", "2000,00"},
		},
	}
)

// Records materializes the fixture with ids starting at 1.
func (f *Fixture) Records() []model.CategoryRecord {
	return f.RecordsFrom(1)
}

// RecordsFrom materializes the fixture with consecutive ids starting at first.
func (f *Fixture) RecordsFrom(first int64) []model.CategoryRecord {
	out := make([]model.CategoryRecord, len(f.rows))
	for i, r := range f.rows {
		out[i] = model.CategoryRecord{
			ID:            first + int64(i),
			Description:   r.description,
			Category:      r.category,
			Amount:        r.amount,
			OperationDate: BaseDate.AddDate(0, 0, i),
			Kind:          f.Kind,
		}
	}
	return out
}

// CardTransaction builds a card settlement keyed "<id>-0".
func CardTransaction(id int64, place, amount string) model.Transaction {
	return model.Transaction{
		Key:           fmt.Sprintf("%d-0", id),
		OperationID:   id,
		Kind:          model.KindCardSettlement,
		Amount:        amount,
		OperationDate: BaseDate,
		Card:          &model.CardData{Card: "5375********1234", Place: place},
	}
}

// TransferTransaction builds a transfer keyed "<id>-0".
func TransferTransaction(id int64, title, name, destination, amount string) model.Transaction {
	return model.Transaction{
		Key:           fmt.Sprintf("%d-0", id),
		OperationID:   id,
		Kind:          model.KindTransfer,
		Amount:        amount,
		OperationDate: BaseDate,
		Transfer: &model.TransferData{
			Source:         "PL10105000997603123456789123",
			Destination:    destination,
			Name:           name,
			Title:          title,
			SettlementDate: BaseDate,
			Saldo:          "1000,00",
		},
	}
}
