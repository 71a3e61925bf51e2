// README: Embedded demo data (directory users, service catalog, starter orders) decoded with yaml.v3.
package seed

import (
	_ "embed"
	"fmt"
	"time"

	"gopkg.in/yaml.v3"
)

//go:embed seed.yaml
var raw []byte

type User struct {
	ID     string `yaml:"id"`
	Name   string `yaml:"name"`
	Email  string `yaml:"email"`
	Role   string `yaml:"role"`
	Avatar string `yaml:"avatar"`
	Phone  string `yaml:"phone"`
}

type Service struct {
	ID          string   `yaml:"id"`
	Title       string   `yaml:"title"`
	Description string   `yaml:"description"`
	Price       int64    `yaml:"price"`
	Features    []string `yaml:"features"`
}

type Message struct {
	ID       string        `yaml:"id"`
	SenderID string        `yaml:"sender_id"`
	Text     string        `yaml:"text"`
	Age      time.Duration `yaml:"age"`
}

type Order struct {
	ID           string        `yaml:"id"`
	CustomerID   string        `yaml:"customer_id"`
	CustomerName string        `yaml:"customer_name"`
	ServiceType  string        `yaml:"service_type"`
	Status       string        `yaml:"status"`
	TechnicianID string        `yaml:"technician_id"`
	DateOffset   time.Duration `yaml:"date_offset"`
	Address      string        `yaml:"address"`
	Description  string        `yaml:"description"`
	Messages     []Message     `yaml:"messages"`
}

type Data struct {
	Users    []User    `yaml:"users"`
	Services []Service `yaml:"services"`
	Currency string    `yaml:"currency"`
	Orders   []Order   `yaml:"orders"`
}

// Load decodes the embedded seed file.
func Load() (Data, error) {
	return Parse(raw)
}

// Parse decodes seed data from YAML bytes.
func Parse(b []byte) (Data, error) {
	var d Data
	if err := yaml.Unmarshal(b, &d); err != nil {
		return Data{}, fmt.Errorf("parsing seed YAML: %w", err)
	}
	return d, nil
}

// MustLoad is Load for package initialization paths where the embedded file is known-good.
func MustLoad() Data {
	d, err := Load()
	if err != nil {
		panic(err)
	}
	return d
}
