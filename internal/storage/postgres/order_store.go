package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/Bayazov/OrderManagement/internal/domain"
	"github.com/jackc/pgx/v5/pgconn"
)

const opTimeout = 5 * time.Second

type orderStore struct {
	db *sql.DB
}

// NewOrderStore создаёт PostgreSQL-реализацию OrderStore.
func NewOrderStore(store *Store) domain.OrderStore {
	return &orderStore{db: store.DB()}
}

// Create сохраняет заказ и его позиции в одной транзакции.
// Идентификаторы присваивает база и они записываются обратно в order.
func (s *orderStore) Create(ctx context.Context, order *domain.Order) error {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}

	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	err = tx.QueryRowContext(ctx, `
		INSERT INTO orders (customer_name, status, total_price, user_id, version, deleted)
		VALUES ($1, $2, $3, $4, 0, FALSE)
		RETURNING id, created_at, updated_at
	`,
		order.CustomerName, string(order.Status), order.TotalPrice, order.UserID,
	).Scan(&order.ID, &order.CreatedAt, &order.UpdatedAt)
	if err != nil {
		return fmt.Errorf("insert order: %w", err)
	}
	order.Version = 0

	for i := range order.Products {
		p := &order.Products[i]
		if err = tx.QueryRowContext(ctx, `
			INSERT INTO products (order_id, position, name, price, quantity)
			VALUES ($1, $2, $3, $4, $5)
			RETURNING id
		`, order.ID, i, p.Name, p.Price, p.Quantity).Scan(&p.ID); err != nil {
			return fmt.Errorf("insert product: %w", err)
		}
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit create order: %w", err)
	}

	return nil
}

// Get возвращает заказ с позициями; мягко удалённые записи не видны.
func (s *orderStore) Get(ctx context.Context, id int64) (domain.Order, error) {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	var order domain.Order
	var status string

	err := s.db.QueryRowContext(ctx, `
		SELECT id, customer_name, status, total_price, user_id, deleted, version, created_at, updated_at
		FROM orders
		WHERE id = $1 AND deleted = FALSE
	`, id).Scan(
		&order.ID, &order.CustomerName, &status, &order.TotalPrice,
		&order.UserID, &order.Deleted, &order.Version, &order.CreatedAt, &order.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.Order{}, domain.ErrOrderNotFound
		}
		return domain.Order{}, fmt.Errorf("select order: %w", err)
	}
	order.Status = domain.OrderStatus(status)

	products, err := s.loadProducts(ctx, order.ID)
	if err != nil {
		return domain.Order{}, err
	}
	order.Products = products

	return order, nil
}

// List возвращает неудалённые заказы, удовлетворяющие фильтру.
func (s *orderStore) List(ctx context.Context, filter domain.OrderFilter) ([]domain.Order, error) {
	return s.query(ctx, filter, nil)
}

// ListByOwner возвращает заказы владельца, удовлетворяющие фильтру.
func (s *orderStore) ListByOwner(ctx context.Context, ownerID int64, filter domain.OrderFilter) ([]domain.Order, error) {
	return s.query(ctx, filter, &ownerID)
}

// query строит выборку по конвенции "nil означает любое значение".
func (s *orderStore) query(ctx context.Context, filter domain.OrderFilter, ownerID *int64) ([]domain.Order, error) {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	var sb strings.Builder
	sb.WriteString(`
		SELECT id, customer_name, status, total_price, user_id, deleted, version, created_at, updated_at
		FROM orders
		WHERE deleted = FALSE`)

	args := make([]any, 0, 4)
	if ownerID != nil {
		args = append(args, *ownerID)
		fmt.Fprintf(&sb, " AND user_id = $%d", len(args))
	}
	if filter.Status != nil {
		args = append(args, string(*filter.Status))
		fmt.Fprintf(&sb, " AND status = $%d", len(args))
	}
	if filter.MinPrice != nil {
		args = append(args, *filter.MinPrice)
		fmt.Fprintf(&sb, " AND total_price >= $%d", len(args))
	}
	if filter.MaxPrice != nil {
		args = append(args, *filter.MaxPrice)
		fmt.Fprintf(&sb, " AND total_price <= $%d", len(args))
	}
	sb.WriteString(" ORDER BY created_at DESC, id DESC")

	rows, err := s.db.QueryContext(ctx, sb.String(), args...)
	if err != nil {
		return nil, fmt.Errorf("list orders: %w", err)
	}
	defer rows.Close()

	orders := make([]domain.Order, 0)
	for rows.Next() {
		var order domain.Order
		var status string
		if err := rows.Scan(
			&order.ID, &order.CustomerName, &status, &order.TotalPrice,
			&order.UserID, &order.Deleted, &order.Version, &order.CreatedAt, &order.UpdatedAt,
		); err != nil {
			return nil, fmt.Errorf("scan order row: %w", err)
		}
		order.Status = domain.OrderStatus(status)

		products, err := s.loadProducts(ctx, order.ID)
		if err != nil {
			return nil, err
		}
		order.Products = products
		orders = append(orders, order)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate order rows: %w", err)
	}

	return orders, nil
}

// Update сохраняет изменённый заказ с учётом optimistic locking и позиционно
// сверяет строки позиций: пересекающиеся обновляются по id, новые вставляются,
// лишние удаляются.
func (s *orderStore) Update(ctx context.Context, order *domain.Order) error {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}

	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	res, err := tx.ExecContext(ctx, `
		UPDATE orders
		SET customer_name = $1,
		    status = $2,
		    total_price = $3,
		    deleted = $4,
		    version = version + 1,
		    updated_at = NOW()
		WHERE id = $5
		  AND version = $6
		  AND deleted = FALSE
	`,
		order.CustomerName, string(order.Status), order.TotalPrice, order.Deleted,
		order.ID, order.Version,
	)
	if err != nil {
		return fmt.Errorf("update order: %w", err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if affected == 0 {
		exists, existsErr := s.orderExistsTx(ctx, tx, order.ID)
		if existsErr != nil {
			err = existsErr
			return err
		}
		err = domain.ErrOrderVersionConflict
		if !exists {
			err = domain.ErrOrderNotFound
		}
		return err
	}

	for i := range order.Products {
		p := &order.Products[i]
		if p.ID != 0 {
			if _, err = tx.ExecContext(ctx, `
				UPDATE products SET name = $1, price = $2, quantity = $3
				WHERE id = $4 AND order_id = $5
			`, p.Name, p.Price, p.Quantity, p.ID, order.ID); err != nil {
				return fmt.Errorf("update product: %w", err)
			}
			continue
		}
		if err = tx.QueryRowContext(ctx, `
			INSERT INTO products (order_id, position, name, price, quantity)
			VALUES ($1, $2, $3, $4, $5)
			RETURNING id
		`, order.ID, i, p.Name, p.Price, p.Quantity).Scan(&p.ID); err != nil {
			return fmt.Errorf("insert product: %w", err)
		}
	}

	if _, err = tx.ExecContext(ctx, `
		DELETE FROM products WHERE order_id = $1 AND position >= $2
	`, order.ID, len(order.Products)); err != nil {
		return fmt.Errorf("trim surplus products: %w", err)
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit update order: %w", err)
	}

	order.Version++
	return nil
}

func (s *orderStore) loadProducts(ctx context.Context, orderID int64) ([]domain.Product, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, name, price, quantity
		FROM products
		WHERE order_id = $1
		ORDER BY position ASC
	`, orderID)
	if err != nil {
		return nil, fmt.Errorf("load products: %w", err)
	}
	defer rows.Close()

	products := make([]domain.Product, 0)
	for rows.Next() {
		var p domain.Product
		if err := rows.Scan(&p.ID, &p.Name, &p.Price, &p.Quantity); err != nil {
			return nil, fmt.Errorf("scan product: %w", err)
		}
		products = append(products, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate products: %w", err)
	}

	return products, nil
}

func (s *orderStore) orderExistsTx(ctx context.Context, tx *sql.Tx, orderID int64) (bool, error) {
	var id int64
	err := tx.QueryRowContext(ctx, `SELECT id FROM orders WHERE id = $1 AND deleted = FALSE`, orderID).Scan(&id)
	if err == nil {
		return true, nil
	}
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	return false, fmt.Errorf("check order exists: %w", err)
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23505"
	}
	return false
}

var _ domain.OrderStore = (*orderStore)(nil)
