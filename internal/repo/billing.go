package repo

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/otaviolbarbosa/nascere/internal/billing"
	"gorm.io/gorm"
)

const billingSelect = `
	SELECT b.id, b.patient_id, p.name AS patient_name, b.professional_id, b.description, b.total_amount,
		b.paid_amount, b.payment_method, b.status, b.installment_count, b.installment_interval,
		b.installment_unit, b.notes, b.created_at, b.updated_at
	FROM billings b
	JOIN patients p ON p.id = b.patient_id`

const installmentColumns = `id, billing_id, installment_number, amount, paid_amount, due_date, status,
	payment_link, paid_at, created_at`

// CreateBilling grava a cobrança e as parcelas (já calculadas por billing.Plan) na mesma transação.
func CreateBilling(ctx context.Context, db *gorm.DB, b *billing.Billing) error {
	return db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var res struct {
			ID        uuid.UUID
			CreatedAt time.Time
		}
		if err := tx.Raw(`
			INSERT INTO billings (patient_id, professional_id, description, total_amount, payment_method,
				status, installment_count, installment_interval, installment_unit, notes)
			VALUES (?, ?, ?, ?, ?, 'pendente', ?, ?, ?, ?)
			RETURNING id, created_at
		`, b.PatientID, b.ProfessionalID, b.Description, b.TotalAmount, b.PaymentMethod,
			b.InstallmentCount, b.InstallmentInterval, b.InstallmentUnit, b.Notes).Scan(&res).Error; err != nil {
			return err
		}
		b.ID = res.ID
		b.CreatedAt = res.CreatedAt
		b.UpdatedAt = res.CreatedAt
		b.Status = billing.StatusPendente
		for i := range b.Installments {
			inst := &b.Installments[i]
			var row struct {
				ID        uuid.UUID
				CreatedAt time.Time
			}
			if err := tx.Raw(`
				INSERT INTO installments (billing_id, installment_number, amount, due_date, status, payment_link)
				VALUES (?, ?, ?, ?, 'pendente', ?)
				RETURNING id, created_at
			`, b.ID, inst.InstallmentNumber, inst.Amount, inst.DueDate.Format("2006-01-02"), inst.PaymentLink).
				Scan(&row).Error; err != nil {
				return err
			}
			inst.ID = row.ID
			inst.BillingID = b.ID
			inst.CreatedAt = row.CreatedAt
			inst.Status = billing.StatusPendente
		}
		return nil
	})
}

// BillingsForProfessional lista as cobranças do profissional com parcelas. from/to filtram created_at.
func BillingsForProfessional(ctx context.Context, db *gorm.DB, professionalID uuid.UUID, from, to *time.Time) ([]billing.Billing, error) {
	q := billingSelect + ` WHERE b.professional_id = ?`
	args := []interface{}{professionalID}
	if from != nil {
		q += ` AND b.created_at >= ?`
		args = append(args, *from)
	}
	if to != nil {
		q += ` AND b.created_at < ?`
		args = append(args, to.AddDate(0, 0, 1))
	}
	q += ` ORDER BY b.created_at DESC`
	var list []billing.Billing
	if err := db.WithContext(ctx).Raw(q, args...).Scan(&list).Error; err != nil {
		return nil, err
	}
	return list, attachInstallments(ctx, db, list)
}

func BillingsForPatient(ctx context.Context, db *gorm.DB, patientID uuid.UUID) ([]billing.Billing, error) {
	var list []billing.Billing
	if err := db.WithContext(ctx).Raw(billingSelect+`
		WHERE b.patient_id = ? ORDER BY b.created_at DESC
	`, patientID).Scan(&list).Error; err != nil {
		return nil, err
	}
	return list, attachInstallments(ctx, db, list)
}

// attachInstallments carrega as parcelas de todas as cobranças numa única query.
func attachInstallments(ctx context.Context, db *gorm.DB, list []billing.Billing) error {
	if len(list) == 0 {
		return nil
	}
	ids := make([]uuid.UUID, len(list))
	index := make(map[uuid.UUID]int, len(list))
	for i, b := range list {
		ids[i] = b.ID
		index[b.ID] = i
		list[i].Installments = []billing.Installment{}
	}
	var insts []billing.Installment
	if err := db.WithContext(ctx).Raw(`SELECT `+installmentColumns+` FROM installments
		WHERE billing_id IN ? ORDER BY billing_id, installment_number`, ids).Scan(&insts).Error; err != nil {
		return err
	}
	for _, inst := range insts {
		if i, ok := index[inst.BillingID]; ok {
			list[i].Installments = append(list[i].Installments, inst)
		}
	}
	return nil
}

// BillingByID retorna a cobrança com parcelas e pagamentos.
func BillingByID(ctx context.Context, db *gorm.DB, id uuid.UUID) (*billing.Billing, error) {
	var b billing.Billing
	if err := db.WithContext(ctx).Raw(billingSelect+` WHERE b.id = ?`, id).Scan(&b).Error; err != nil {
		return nil, err
	}
	if b.ID == uuid.Nil {
		return nil, gorm.ErrRecordNotFound
	}
	list := []billing.Billing{b}
	if err := attachInstallments(ctx, db, list); err != nil {
		return nil, err
	}
	b = list[0]
	if len(b.Installments) == 0 {
		return &b, nil
	}
	var payments []billing.Payment
	if err := db.WithContext(ctx).Raw(`
		SELECT pay.id, pay.installment_id, pay.amount, pay.payment_method, pay.paid_at, pay.receipt_path,
			pay.notes, pay.registered_by, pay.created_at
		FROM payments pay
		JOIN installments i ON i.id = pay.installment_id
		WHERE i.billing_id = ?
		ORDER BY pay.paid_at
	`, id).Scan(&payments).Error; err != nil {
		return nil, err
	}
	byInst := make(map[uuid.UUID]int, len(b.Installments))
	for i := range b.Installments {
		byInst[b.Installments[i].ID] = i
		b.Installments[i].Payments = []billing.Payment{}
	}
	for _, p := range payments {
		if i, ok := byInst[p.InstallmentID]; ok {
			b.Installments[i].Payments = append(b.Installments[i].Payments, p)
		}
	}
	return &b, nil
}

// UpdateBillingStatus altera status e observações. Cancelar também cancela as parcelas em aberto.
func UpdateBillingStatus(ctx context.Context, db *gorm.DB, id uuid.UUID, status string, notes *string) error {
	return db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		result := tx.Exec(`
			UPDATE billings SET status = ?, notes = COALESCE(?, notes), updated_at = now() WHERE id = ?
		`, status, notes, id)
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return gorm.ErrRecordNotFound
		}
		if status != billing.StatusCancelado {
			return nil
		}
		return tx.Exec(`
			UPDATE installments SET status = 'cancelado' WHERE billing_id = ? AND status IN ('pendente', 'atrasado')
		`, id).Error
	})
}

func SetInstallmentLink(ctx context.Context, db *gorm.DB, billingID, installmentID uuid.UUID, link *string) error {
	result := db.WithContext(ctx).Exec(`
		UPDATE installments SET payment_link = ? WHERE id = ? AND billing_id = ?
	`, link, installmentID, billingID)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// RecordPayment registra um pagamento: trava a parcela, valida o saldo, atualiza parcela e
// totais da cobrança na mesma transação.
func RecordPayment(ctx context.Context, db *gorm.DB, billingID uuid.UUID, p *billing.Payment) error {
	return db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var inst billing.Installment
		if err := tx.Raw(`SELECT `+installmentColumns+` FROM installments
			WHERE id = ? AND billing_id = ? FOR UPDATE`, p.InstallmentID, billingID).Scan(&inst).Error; err != nil {
			return err
		}
		if inst.ID == uuid.Nil {
			return gorm.ErrRecordNotFound
		}
		if inst.Status == billing.StatusPago || inst.Status == billing.StatusCancelado {
			return ErrInstallmentClosed
		}
		if p.Amount > inst.Remaining() {
			return ErrOverpayment
		}
		if p.PaidAt.IsZero() {
			p.PaidAt = time.Now()
		}
		var res struct {
			ID        uuid.UUID
			CreatedAt time.Time
		}
		if err := tx.Raw(`
			INSERT INTO payments (installment_id, amount, payment_method, paid_at, receipt_path, notes, registered_by)
			VALUES (?, ?, ?, ?, ?, ?, ?)
			RETURNING id, created_at
		`, p.InstallmentID, p.Amount, p.PaymentMethod, p.PaidAt, p.ReceiptPath, p.Notes, p.RegisteredBy).
			Scan(&res).Error; err != nil {
			return err
		}
		p.ID = res.ID
		p.CreatedAt = res.CreatedAt

		paid, status := billing.ApplyPayment(inst, p.Amount)
		var paidAt *time.Time
		if status == billing.StatusPago {
			paidAt = &p.PaidAt
		}
		if err := tx.Exec(`
			UPDATE installments SET paid_amount = ?, status = ?, paid_at = COALESCE(?, paid_at) WHERE id = ?
		`, paid, status, paidAt, inst.ID).Error; err != nil {
			return err
		}
		return refreshBillingTotals(tx, billingID)
	})
}

// refreshBillingTotals recalcula paid_amount e status da cobrança a partir das parcelas.
func refreshBillingTotals(tx *gorm.DB, billingID uuid.UUID) error {
	var current string
	if err := tx.Raw(`SELECT status FROM billings WHERE id = ? FOR UPDATE`, billingID).Scan(&current).Error; err != nil {
		return err
	}
	var insts []billing.Installment
	if err := tx.Raw(`SELECT `+installmentColumns+` FROM installments WHERE billing_id = ?`, billingID).
		Scan(&insts).Error; err != nil {
		return err
	}
	var paid int64
	for _, i := range insts {
		paid += i.PaidAmount
	}
	return tx.Exec(`UPDATE billings SET paid_amount = ?, status = ?, updated_at = now() WHERE id = ?`,
		paid, billing.DeriveStatus(current, insts), billingID).Error
}

// MarkOverdueInstallments passa para atrasado as parcelas pendentes vencidas antes de today
// e recalcula o status das cobranças afetadas. Retorna quantas parcelas mudaram.
func MarkOverdueInstallments(ctx context.Context, db *gorm.DB, today time.Time) (int64, error) {
	var affected int64
	err := db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var rows []struct{ BillingID uuid.UUID }
		if err := tx.Raw(`
			UPDATE installments SET status = 'atrasado'
			WHERE status = 'pendente' AND due_date < ?
			RETURNING billing_id
		`, today.Format("2006-01-02")).Scan(&rows).Error; err != nil {
			return err
		}
		affected = int64(len(rows))
		seen := map[uuid.UUID]bool{}
		for _, r := range rows {
			if seen[r.BillingID] {
				continue
			}
			seen[r.BillingID] = true
			if err := refreshBillingTotals(tx, r.BillingID); err != nil {
				return err
			}
		}
		return nil
	})
	return affected, err
}

// DueInstallment é uma parcela pendente com o contexto necessário para o lembrete.
type DueInstallment struct {
	billing.Installment
	PatientID      uuid.UUID
	PatientName    string
	ProfessionalID uuid.UUID
	Description    string
}

// InstallmentsDueBetween lista parcelas pendentes com vencimento em [from, to].
func InstallmentsDueBetween(ctx context.Context, db *gorm.DB, from, to time.Time) ([]DueInstallment, error) {
	var list []DueInstallment
	err := db.WithContext(ctx).Raw(`
		SELECT i.id, i.billing_id, i.installment_number, i.amount, i.paid_amount, i.due_date, i.status,
			i.payment_link, i.paid_at, i.created_at,
			b.patient_id, p.name AS patient_name, b.professional_id, b.description
		FROM installments i
		JOIN billings b ON b.id = i.billing_id
		JOIN patients p ON p.id = b.patient_id
		WHERE i.status = 'pendente' AND i.due_date BETWEEN ? AND ?
		ORDER BY i.due_date
	`, from.Format("2006-01-02"), to.Format("2006-01-02")).Scan(&list).Error
	return list, err
}
