package store

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"bookbot/internal/logging"
	"bookbot/internal/types"
)

// catalogFile is the on-disk catalog format.
type catalogFile struct {
	Books []catalogBook `yaml:"books"`
}

type catalogBook struct {
	ID            string  `yaml:"id"`
	Title         string  `yaml:"title"`
	Author        string  `yaml:"author"`
	Category      string  `yaml:"category"`
	Price         int     `yaml:"price"`
	Stock         int     `yaml:"stock"`
	ISBN          string  `yaml:"isbn,omitempty"`
	Description   string  `yaml:"description,omitempty"`
	Rating        float64 `yaml:"rating,omitempty"`
	PublishedYear int     `yaml:"published_year,omitempty"`
}

// LoadCatalog reads and validates a YAML catalog file.
func LoadCatalog(path string) ([]types.Book, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read catalog: %w", err)
	}

	var file catalogFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("failed to parse catalog: %w", err)
	}

	books := make([]types.Book, 0, len(file.Books))
	for i, b := range file.Books {
		if b.ID == "" || b.Title == "" {
			return nil, fmt.Errorf("catalog entry %d missing id or title", i)
		}
		if b.Price < 0 || b.Stock < 0 {
			return nil, fmt.Errorf("catalog entry %s has negative price or stock", b.ID)
		}
		books = append(books, types.Book{
			ID:            b.ID,
			Title:         b.Title,
			Author:        b.Author,
			Category:      b.Category,
			Price:         b.Price,
			Stock:         b.Stock,
			ISBN:          b.ISBN,
			Description:   b.Description,
			Rating:        b.Rating,
			PublishedYear: b.PublishedYear,
		})
	}
	return books, nil
}

// Seed loads the catalog file at path into the store. When the file is
// missing, the built-in default catalog is used instead so a fresh install
// has something to sell.
func Seed(s *Local, path string) (int, error) {
	var books []types.Book
	if _, err := os.Stat(path); path == "" || os.IsNotExist(err) {
		books = DefaultCatalog()
		logging.Store("catalog file missing, seeding %d default books", len(books))
	} else {
		loaded, err := LoadCatalog(path)
		if err != nil {
			return 0, err
		}
		books = loaded
	}
	if err := s.UpsertBooks(books); err != nil {
		return 0, err
	}
	return len(books), nil
}

// DefaultCatalog is the built-in starter catalog.
func DefaultCatalog() []types.Book {
	return []types.Book{
		{ID: "BOOK001", Title: "Đắc Nhân Tâm", Author: "Dale Carnegie", Category: "Kỹ năng sống", Price: 86000, Stock: 25, Rating: 4.8, PublishedYear: 1936, Description: "Nghệ thuật thu phục lòng người."},
		{ID: "BOOK002", Title: "Nhà Giả Kim", Author: "Paulo Coelho", Category: "Tiểu thuyết", Price: 79000, Stock: 30, Rating: 4.7, PublishedYear: 1988, Description: "Hành trình đi tìm kho báu của chàng chăn cừu Santiago."},
		{ID: "BOOK003", Title: "Thám Tử Lừng Danh Conan - Tập 1", Author: "Gosho Aoyama", Category: "Trinh thám", Price: 30000, Stock: 50, Rating: 4.9, PublishedYear: 1994},
		{ID: "BOOK004", Title: "Harry Potter và Hòn Đá Phù Thủy", Author: "J.K. Rowling", Category: "Giả tưởng", Price: 150000, Stock: 20, Rating: 4.9, PublishedYear: 1997},
		{ID: "BOOK005", Title: "Tuổi Trẻ Đáng Giá Bao Nhiêu", Author: "Rosie Nguyễn", Category: "Kỹ năng sống", Price: 90000, Stock: 15, Rating: 4.5, PublishedYear: 2016},
		{ID: "BOOK006", Title: "Số Đỏ", Author: "Vũ Trọng Phụng", Category: "Văn học Việt Nam", Price: 55000, Stock: 12, Rating: 4.6, PublishedYear: 1936},
		{ID: "BOOK007", Title: "Chí Phèo", Author: "Nam Cao", Category: "Văn học Việt Nam", Price: 45000, Stock: 18, Rating: 4.7, PublishedYear: 1941},
		{ID: "BOOK008", Title: "Sapiens: Lược Sử Loài Người", Author: "Yuval Noah Harari", Category: "Lịch sử", Price: 189000, Stock: 10, Rating: 4.8, PublishedYear: 2011},
		{ID: "BOOK009", Title: "Tôi Thấy Hoa Vàng Trên Cỏ Xanh", Author: "Nguyễn Nhật Ánh", Category: "Văn học Việt Nam", Price: 82000, Stock: 22, Rating: 4.6, PublishedYear: 2010},
		{ID: "BOOK010", Title: "Sherlock Holmes Toàn Tập", Author: "Arthur Conan Doyle", Category: "Trinh thám", Price: 250000, Stock: 8, Rating: 4.9, PublishedYear: 1892},
	}
}
