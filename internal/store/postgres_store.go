package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"github.com/orgstack/orgdir/internal/ident"
	"github.com/orgstack/orgdir/internal/model"
)

// PostgresStore implements DirectoryStore for PostgreSQL. Rows are keyed by
// storage id; local ids are recovered by decoding on read.
type PostgresStore struct {
	pool   *pgxpool.Pool
	logger *zap.Logger
}

// NewPostgresStore creates a new PostgreSQL directory store.
func NewPostgresStore(
	host string,
	port int,
	database, user, password string,
	maxConns, minConns int,
	logger *zap.Logger,
) (*PostgresStore, error) {
	connString := fmt.Sprintf(
		"host=%s port=%d dbname=%s user=%s password=%s pool_max_conns=%d pool_min_conns=%d",
		host, port, database, user, password, maxConns, minConns,
	)

	config, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, fmt.Errorf("failed to parse connection string: %w", err)
	}

	pool, err := pgxpool.NewWithConfig(context.Background(), config)
	if err != nil {
		return nil, fmt.Errorf("failed to create connection pool: %w", err)
	}

	if err := pool.Ping(context.Background()); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return &PostgresStore{
		pool:   pool,
		logger: logger,
	}, nil
}

// GetPool returns the underlying connection pool for shared use.
func (s *PostgresStore) GetPool() *pgxpool.Pool {
	return s.pool
}

// FetchEmployees retrieves all employees of the tenant ordered by local id.
func (s *PostgresStore) FetchEmployees(ctx context.Context, tenantID int64) ([]*model.Employee, error) {
	query := `
		SELECT id, name, hire_date, position, salary, performance
		FROM employees
		WHERE org_id = $1
		ORDER BY id
	`

	rows, err := s.pool.Query(ctx, query, tenantID)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch employees: %w", err)
	}
	defer rows.Close()

	var employees []*model.Employee
	for rows.Next() {
		emp, err := scanEmployee(rows)
		if err != nil {
			return nil, err
		}
		employees = append(employees, emp)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate employees: %w", err)
	}

	return employees, nil
}

func scanEmployee(row pgx.Row) (*model.Employee, error) {
	var (
		emp       model.Employee
		storageID int64
		position  string
	)
	if err := row.Scan(&storageID, &emp.Name, &emp.HireDate, &position, &emp.Salary, &emp.Performance); err != nil {
		return nil, fmt.Errorf("failed to scan employee: %w", err)
	}
	_, emp.LocalID = ident.Decode(storageID)
	emp.Position = model.ParsePosition(position)
	return &emp, nil
}

// FetchDepartments retrieves all departments of the tenant ordered by local
// id, each with its employee collection populated.
func (s *PostgresStore) FetchDepartments(ctx context.Context, tenantID int64) ([]*model.Department, error) {
	query := `
		SELECT id, name, head_id
		FROM departments
		WHERE org_id = $1
		ORDER BY id
	`

	rows, err := s.pool.Query(ctx, query, tenantID)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch departments: %w", err)
	}
	defer rows.Close()

	var departments []*model.Department
	byLocalID := make(map[int64]*model.Department)
	for rows.Next() {
		var (
			storageID int64
			name      string
			headID    *int64
		)
		if err := rows.Scan(&storageID, &name, &headID); err != nil {
			return nil, fmt.Errorf("failed to scan department: %w", err)
		}

		dept := &model.Department{Name: name}
		_, dept.LocalID = ident.Decode(storageID)
		if headID != nil {
			_, dept.HeadLocalID = ident.Decode(*headID)
		}
		departments = append(departments, dept)
		byLocalID[dept.LocalID] = dept
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate departments: %w", err)
	}

	empQuery := `
		SELECT id, department_id, name, hire_date, position, salary, performance
		FROM employees
		WHERE org_id = $1
		ORDER BY id
	`

	empRows, err := s.pool.Query(ctx, empQuery, tenantID)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch department employees: %w", err)
	}
	defer empRows.Close()

	for empRows.Next() {
		var (
			emp         model.Employee
			storageID   int64
			deptStorage int64
			position    string
		)
		if err := empRows.Scan(&storageID, &deptStorage, &emp.Name, &emp.HireDate, &position, &emp.Salary, &emp.Performance); err != nil {
			return nil, fmt.Errorf("failed to scan employee: %w", err)
		}
		_, emp.LocalID = ident.Decode(storageID)
		emp.Position = model.ParsePosition(position)

		_, deptLocalID := ident.Decode(deptStorage)
		if dept, exists := byLocalID[deptLocalID]; exists {
			dept.Employees = append(dept.Employees, &emp)
		}
	}
	if err := empRows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate department employees: %w", err)
	}

	return departments, nil
}

// FetchOrganization retrieves the tenant's organization with its department
// tree populated, or ErrNotFound.
func (s *PostgresStore) FetchOrganization(ctx context.Context, tenantID int64) (*model.Organization, error) {
	query := `SELECT id, name FROM organizations WHERE id = $1`

	var org model.Organization
	err := s.pool.QueryRow(ctx, query, tenantID).Scan(&org.ID, &org.Name)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to fetch organization: %w", err)
	}

	org.Departments, err = s.FetchDepartments(ctx, tenantID)
	if err != nil {
		return nil, err
	}
	return &org, nil
}

// InsertEmployee persists a new employee in the named department and returns
// its encoded storage id. The local id is one greater than the tenant's
// current maximum, or 1 if the tenant has no employees yet.
func (s *PostgresStore) InsertEmployee(ctx context.Context, tenantID, departmentLocalID int64, draft model.EmployeeDraft) (int64, error) {
	deptStorageID, err := ident.Encode(tenantID, departmentLocalID)
	if err != nil {
		return 0, err
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	var deptExists bool
	err = tx.QueryRow(ctx,
		`SELECT EXISTS(SELECT 1 FROM departments WHERE id = $1 AND org_id = $2)`,
		deptStorageID, tenantID,
	).Scan(&deptExists)
	if err != nil {
		return 0, fmt.Errorf("failed to check department: %w", err)
	}
	if !deptExists {
		return 0, ErrNotFound
	}

	// Storage ids grow with local ids within a tenant, so the max storage id
	// carries the max local id.
	var maxStorageID int64
	err = tx.QueryRow(ctx,
		`SELECT COALESCE(MAX(id), 0) FROM employees WHERE org_id = $1`,
		tenantID,
	).Scan(&maxStorageID)
	if err != nil {
		return 0, fmt.Errorf("failed to determine next employee id: %w", err)
	}

	localID := int64(1)
	if maxStorageID != 0 {
		_, maxLocal := ident.Decode(maxStorageID)
		localID = maxLocal + 1
	}
	storageID, err := ident.Encode(tenantID, localID)
	if err != nil {
		return 0, err
	}

	_, err = tx.Exec(ctx,
		`INSERT INTO employees (id, org_id, department_id, name, hire_date, position, salary, performance)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		storageID, tenantID, deptStorageID, draft.Name, draft.HireDate, string(draft.Position), draft.Salary, draft.Performance,
	)
	if err != nil {
		return 0, fmt.Errorf("failed to insert employee: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return 0, fmt.Errorf("failed to commit transaction: %w", err)
	}

	s.logger.Debug("Inserted employee",
		zap.Int64("tenant_id", tenantID),
		zap.Int64("local_id", localID),
		zap.Int64("department_local_id", departmentLocalID))
	return storageID, nil
}

// InsertDepartment persists a new department under the tenant and returns
// its encoded storage id.
func (s *PostgresStore) InsertDepartment(ctx context.Context, tenantID int64, draft model.DepartmentDraft) (int64, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	var orgExists bool
	err = tx.QueryRow(ctx,
		`SELECT EXISTS(SELECT 1 FROM organizations WHERE id = $1)`,
		tenantID,
	).Scan(&orgExists)
	if err != nil {
		return 0, fmt.Errorf("failed to check organization: %w", err)
	}
	if !orgExists {
		return 0, ErrNotFound
	}

	var maxStorageID int64
	err = tx.QueryRow(ctx,
		`SELECT COALESCE(MAX(id), 0) FROM departments WHERE org_id = $1`,
		tenantID,
	).Scan(&maxStorageID)
	if err != nil {
		return 0, fmt.Errorf("failed to determine next department id: %w", err)
	}

	localID := int64(1)
	if maxStorageID != 0 {
		_, maxLocal := ident.Decode(maxStorageID)
		localID = maxLocal + 1
	}
	storageID, err := ident.Encode(tenantID, localID)
	if err != nil {
		return 0, err
	}

	_, err = tx.Exec(ctx,
		`INSERT INTO departments (id, org_id, name, head_id) VALUES ($1, $2, $3, NULL)`,
		storageID, tenantID, draft.Name,
	)
	if err != nil {
		return 0, fmt.Errorf("failed to insert department: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return 0, fmt.Errorf("failed to commit transaction: %w", err)
	}
	return storageID, nil
}

// RemoveEmployee deletes an employee by storage id, clearing the department
// head reference in the same transaction when the employee holds it.
func (s *PostgresStore) RemoveEmployee(ctx context.Context, tenantID, departmentStorageID, employeeStorageID int64) (bool, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return false, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	_, err = tx.Exec(ctx,
		`UPDATE departments SET head_id = NULL WHERE id = $1 AND org_id = $2 AND head_id = $3`,
		departmentStorageID, tenantID, employeeStorageID,
	)
	if err != nil {
		return false, fmt.Errorf("failed to clear department head: %w", err)
	}

	tag, err := tx.Exec(ctx,
		`DELETE FROM employees WHERE id = $1 AND org_id = $2 AND department_id = $3`,
		employeeStorageID, tenantID, departmentStorageID,
	)
	if err != nil {
		return false, fmt.Errorf("failed to delete employee: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return false, nil
	}

	if err := tx.Commit(ctx); err != nil {
		return false, fmt.Errorf("failed to commit transaction: %w", err)
	}
	return true, nil
}

// UpdateEmployee overwrites the mutable attributes of an existing employee.
// The hire date column is deliberately left out of the update.
func (s *PostgresStore) UpdateEmployee(ctx context.Context, tenantID int64, employee *model.Employee) (bool, error) {
	storageID, err := ident.Encode(tenantID, employee.LocalID)
	if err != nil {
		return false, nil
	}

	tag, err := s.pool.Exec(ctx,
		`UPDATE employees SET name = $1, position = $2, salary = $3, performance = $4
		 WHERE id = $5 AND org_id = $6`,
		employee.Name, string(employee.Position), employee.Salary, employee.Performance,
		storageID, tenantID,
	)
	if err != nil {
		return false, fmt.Errorf("failed to update employee: %w", err)
	}
	return tag.RowsAffected() > 0, nil
}

// UpdateDepartment overwrites an existing department's name and head. A
// non-zero head must be enrolled in that department; otherwise the update is
// rejected and nothing is written.
func (s *PostgresStore) UpdateDepartment(ctx context.Context, tenantID int64, department *model.Department) (bool, error) {
	deptStorageID, err := ident.Encode(tenantID, department.LocalID)
	if err != nil {
		return false, nil
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return false, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	var headStorageID *int64
	if department.HeadLocalID != 0 {
		encoded, err := ident.Encode(tenantID, department.HeadLocalID)
		if err != nil {
			return false, nil
		}

		var enrolled bool
		err = tx.QueryRow(ctx,
			`SELECT EXISTS(SELECT 1 FROM employees WHERE id = $1 AND department_id = $2 AND org_id = $3)`,
			encoded, deptStorageID, tenantID,
		).Scan(&enrolled)
		if err != nil {
			return false, fmt.Errorf("failed to verify department head: %w", err)
		}
		if !enrolled {
			return false, nil
		}
		headStorageID = &encoded
	}

	tag, err := tx.Exec(ctx,
		`UPDATE departments SET name = $1, head_id = $2 WHERE id = $3 AND org_id = $4`,
		department.Name, headStorageID, deptStorageID, tenantID,
	)
	if err != nil {
		return false, fmt.Errorf("failed to update department: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return false, nil
	}

	if err := tx.Commit(ctx); err != nil {
		return false, fmt.Errorf("failed to commit transaction: %w", err)
	}
	return true, nil
}

// InsertOrganization registers a new organization with the next free id.
func (s *PostgresStore) InsertOrganization(ctx context.Context, draft model.OrganizationDraft) (*model.Organization, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	var id int64
	err = tx.QueryRow(ctx,
		`SELECT COALESCE(MAX(id), 0) + 1 FROM organizations`,
	).Scan(&id)
	if err != nil {
		return nil, fmt.Errorf("failed to determine next organization id: %w", err)
	}

	_, err = tx.Exec(ctx,
		`INSERT INTO organizations (id, name) VALUES ($1, $2)`,
		id, draft.Name,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to insert organization: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}

	s.logger.Info("Registered organization",
		zap.Int64("tenant_id", id),
		zap.String("name", draft.Name))
	return &model.Organization{ID: id, Name: draft.Name}, nil
}

// Ping checks database connectivity.
func (s *PostgresStore) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

// Close closes the connection pool.
func (s *PostgresStore) Close() {
	s.pool.Close()
}
