package repository

import (
	"context"
	"database/sql"
	"errors"
	"log"
	"testing"
	"time"

	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"

	"inventario-smart/internal/domain"

	_ "github.com/jackc/pgx/v5/stdlib"
)

var testDB *sql.DB

func setupTestDB() (func(context.Context, ...testcontainers.TerminateOption) error, error) {
	var (
		dbName = "testdb"
		dbPwd  = "password"
		dbUser = "user"
	)

	dbContainer, err := postgres.Run(
		context.Background(),
		"postgres:15",
		postgres.WithDatabase(dbName),
		postgres.WithUsername(dbUser),
		postgres.WithPassword(dbPwd),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(5*time.Second)),
	)
	if err != nil {
		return nil, err
	}

	dbHost, err := dbContainer.Host(context.Background())
	if err != nil {
		return dbContainer.Terminate, err
	}

	dbPort, err := dbContainer.MappedPort(context.Background(), "5432/tcp")
	if err != nil {
		return dbContainer.Terminate, err
	}

	connStr := "postgres://" + dbUser + ":" + dbPwd + "@" + dbHost + ":" + dbPort.Port() + "/" + dbName + "?sslmode=disable"
	testDB, err = sql.Open("pgx", connStr)
	if err != nil {
		return dbContainer.Terminate, err
	}

	// Create the catalog and ledger tables
	_, err = testDB.Exec(`
		CREATE TABLE IF NOT EXISTS products (
			id BIGSERIAL PRIMARY KEY,
			sku VARCHAR(64) UNIQUE NOT NULL,
			name VARCHAR(255) NOT NULL,
			qty INTEGER NOT NULL DEFAULT 0 CHECK (qty >= 0),
			status VARCHAR(20) NOT NULL DEFAULT 'AVAILABLE',
			price BIGINT NOT NULL DEFAULT 0 CHECK (price >= 0),
			updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
		);
		CREATE TABLE IF NOT EXISTS stock_movements (
			id BIGSERIAL PRIMARY KEY,
			product_id BIGINT NOT NULL REFERENCES products(id) ON DELETE CASCADE,
			delta INTEGER NOT NULL,
			reason VARCHAR(20) NOT NULL,
			note TEXT NOT NULL DEFAULT '',
			created_at TIMESTAMPTZ NOT NULL DEFAULT now()
		)
	`)
	if err != nil {
		return dbContainer.Terminate, err
	}

	return dbContainer.Terminate, nil
}

func TestMain(m *testing.M) {
	teardown, err := setupTestDB()
	if err != nil {
		log.Fatalf("could not start postgres container: %v", err)
	}

	m.Run()

	if teardown != nil {
		if err := teardown(context.Background()); err != nil {
			log.Fatalf("could not teardown postgres container: %v", err)
		}
	}
}

func cleanTables(t *testing.T) {
	t.Helper()
	if _, err := testDB.Exec("DELETE FROM stock_movements; DELETE FROM products"); err != nil {
		t.Fatalf("clean tables: %v", err)
	}
}

func createTestProduct(t *testing.T, repo ProductRepository, sku string, qty int, price int64) *domain.Product {
	t.Helper()
	p := &domain.Product{
		SKU:    sku,
		Name:   "Producto " + sku,
		Qty:    qty,
		Status: domain.StatusAvailable,
		Price:  price,
	}
	p.RefreshStatus()
	if err := repo.Create(context.Background(), p); err != nil {
		t.Fatalf("create %s: %v", sku, err)
	}
	return p
}

func TestProductCreateAndFindByID(t *testing.T) {
	cleanTables(t)
	repo := NewProductRepository(testDB)
	ctx := context.Background()

	created := createTestProduct(t, repo, "SKU-001", 10, 1200)
	if created.ID == 0 {
		t.Fatal("expected a generated id")
	}
	if created.UpdatedAt.IsZero() {
		t.Error("expected a generated timestamp")
	}

	found, err := repo.FindByID(ctx, created.ID)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if found.SKU != "SKU-001" || found.Qty != 10 || found.Price != 1200 {
		t.Errorf("unexpected product %+v", found)
	}
}

func TestProductFindBySKUIsCaseInsensitive(t *testing.T) {
	cleanTables(t)
	repo := NewProductRepository(testDB)
	ctx := context.Background()

	created := createTestProduct(t, repo, "SKU-ABC", 5, 100)

	for _, sku := range []string{"SKU-ABC", "sku-abc", " Sku-Abc "} {
		found, err := repo.FindBySKU(ctx, sku)
		if err != nil {
			t.Fatalf("FindBySKU(%q): %v", sku, err)
		}
		if found.ID != created.ID {
			t.Errorf("FindBySKU(%q) returned product %d, want %d", sku, found.ID, created.ID)
		}
	}

	if _, err := repo.FindBySKU(ctx, "SKU-404"); !errors.Is(err, ErrProductNotFound) {
		t.Errorf("expected ErrProductNotFound, got %v", err)
	}
}

func TestProductCreateDuplicateSKU(t *testing.T) {
	cleanTables(t)
	repo := NewProductRepository(testDB)
	ctx := context.Background()

	createTestProduct(t, repo, "SKU-001", 10, 100)

	dup := &domain.Product{SKU: "SKU-001", Name: "Otro", Qty: 1, Status: domain.StatusAvailable, Price: 1}
	if err := repo.Create(ctx, dup); !errors.Is(err, ErrSKUExists) {
		t.Errorf("expected ErrSKUExists, got %v", err)
	}
}

func TestProductUpdate(t *testing.T) {
	cleanTables(t)
	repo := NewProductRepository(testDB)
	ctx := context.Background()

	p := createTestProduct(t, repo, "SKU-001", 10, 100)
	before := p.UpdatedAt

	p.Qty = 7
	p.Price = 150
	if err := repo.Update(ctx, p); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !p.UpdatedAt.After(before) {
		t.Error("update must bump the timestamp")
	}

	found, err := repo.FindByID(ctx, p.ID)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if found.Qty != 7 || found.Price != 150 {
		t.Errorf("unexpected product %+v", found)
	}

	ghost := &domain.Product{ID: 99999, SKU: "GHOST", Name: "x", Status: domain.StatusAvailable}
	if err := repo.Update(ctx, ghost); !errors.Is(err, ErrProductNotFound) {
		t.Errorf("expected ErrProductNotFound, got %v", err)
	}
}

func TestProductDeleteCascadesToMovements(t *testing.T) {
	cleanTables(t)
	productRepo := NewProductRepository(testDB)
	movementRepo := NewMovementRepository(testDB)
	ctx := context.Background()

	p := createTestProduct(t, productRepo, "SKU-001", 10, 100)
	mv := &domain.StockMovement{ProductID: p.ID, Delta: -2, Reason: domain.ReasonAdjustment, Note: "venta"}
	if err := movementRepo.Create(ctx, mv); err != nil {
		t.Fatalf("create movement: %v", err)
	}

	if err := productRepo.Delete(ctx, p.ID); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	movements, err := movementRepo.List(ctx, MovementFilter{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(movements) != 0 {
		t.Errorf("ledger entries must be removed with their product, got %d", len(movements))
	}

	if err := productRepo.Delete(ctx, p.ID); !errors.Is(err, ErrProductNotFound) {
		t.Errorf("expected ErrProductNotFound on second delete, got %v", err)
	}
}

func TestProductListOrdersByMostRecentlyUpdated(t *testing.T) {
	cleanTables(t)
	repo := NewProductRepository(testDB)
	ctx := context.Background()

	first := createTestProduct(t, repo, "SKU-001", 10, 100)
	createTestProduct(t, repo, "SKU-002", 5, 200)

	// Touch the first product so it becomes the most recent.
	first.Qty = 9
	if err := repo.Update(ctx, first); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	products, err := repo.List(ctx)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(products) != 2 {
		t.Fatalf("expected 2 products, got %d", len(products))
	}
	if products[0].SKU != "SKU-001" {
		t.Errorf("expected most recently updated first, got %s", products[0].SKU)
	}
}
