// seed-catalog loads a starter catalog and factory directory into an empty
// database. It is meant for local development and demo environments.
//
//	BUSINESS_ID=demo go run ./cmd/seed-catalog
package main

import (
	"context"
	"log"
	"os"

	"bitbucket.org/mmdatafocus/bakery_backend/config"
	"bitbucket.org/mmdatafocus/bakery_backend/models"
	"bitbucket.org/mmdatafocus/bakery_backend/utils"
	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"
)

func main() {
	_ = godotenv.Load()

	businessId := os.Getenv("BUSINESS_ID")
	if businessId == "" {
		businessId = "demo"
	}

	config.ConnectDatabaseWithRetry()
	config.ConnectRedisWithRetry()
	db := config.GetDB()
	utils.ErrorPanic(models.MigrateModels(db))

	ctx := utils.SetBusinessIdInContext(context.Background(), businessId)
	ctx = utils.SetUserIdInContext(ctx, 1)
	ctx = utils.SetUserNameInContext(ctx, "seed")
	ctx = utils.SetIsAdminInContext(ctx, true)

	seedFactories(ctx)
	seedOutlets(ctx)
	seedProducts(ctx)

	log.Println("seed complete")
}

func seedFactories(ctx context.Context) {
	factories := []models.NewFactory{
		{
			Name:  "Jubilee Hills Central Kitchen",
			City:  "Hyderabad",
			Phone: "+914023554401",
			Categories: []models.ProductCategory{
				models.ProductCategoryChocolate,
				models.ProductCategoryCakes,
				models.ProductCategoryGiftHampers,
			},
		},
		{
			Name:  "Secunderabad Biscuit Works",
			City:  "Secunderabad",
			Phone: "+914027804402",
			Categories: []models.ProductCategory{
				models.ProductCategoryBiscuits,
				models.ProductCategoryNamkeen,
			},
		},
		{
			Name:  "Kukatpally Biscuit Unit",
			City:  "Hyderabad",
			Phone: "+914023064403",
			Categories: []models.ProductCategory{
				models.ProductCategoryBiscuits,
				models.ProductCategorySweets,
			},
		},
	}

	branchesByFactory := map[string][]models.NewBranch{
		"Jubilee Hills Central Kitchen": {
			{Name: "Banjara Hills", Code: "BH", City: "Hyderabad"},
		},
		"Secunderabad Biscuit Works": {
			{Name: "Hi-Tech City", Code: "HTC", City: "Hyderabad"},
		},
		"Kukatpally Biscuit Unit": {
			{Name: "Kondapur", Code: "KDP", City: "Hyderabad"},
		},
	}

	for _, input := range factories {
		factory, err := models.CreateFactory(ctx, &input)
		if err != nil {
			log.Printf("factory %q: %v", input.Name, err)
			continue
		}
		for _, branch := range branchesByFactory[factory.Name] {
			branch.FactoryId = factory.ID
			if _, err := models.CreateBranch(ctx, &branch); err != nil {
				log.Printf("branch %q: %v", branch.Name, err)
			}
		}
	}
}

func seedOutlets(ctx context.Context) {
	outlets := []models.NewOutlet{
		{Name: "Madhapur Franchise", OwnerName: "R. Sharma", City: "Hyderabad"},
		{Name: "Gachibowli Franchise", OwnerName: "K. Reddy", City: "Hyderabad"},
	}
	for _, input := range outlets {
		if _, err := models.CreateOutlet(ctx, &input); err != nil {
			log.Printf("outlet %q: %v", input.Name, err)
		}
	}
}

func seedProducts(ctx context.Context) {
	products := []models.NewProduct{
		{Name: "Dark Chocolate Bar", Category: models.ProductCategoryChocolate,
			UnitPrice: decimal.NewFromInt(250), StockQty: decimal.NewFromInt(200)},
		{Name: "Fruit Biscuits", Category: models.ProductCategoryBiscuits,
			UnitPrice: decimal.NewFromInt(450), StockQty: decimal.NewFromInt(150)},
		{Name: "Butter Cookies", Category: models.ProductCategoryBiscuits,
			UnitPrice: decimal.NewFromInt(380), StockQty: decimal.NewFromInt(150)},
		{Name: "Coconut Cookies", Category: models.ProductCategoryBiscuits,
			UnitPrice: decimal.NewFromInt(160), StockQty: decimal.NewFromInt(150)},
		{Name: "Chocolate Truffle Cake", Category: models.ProductCategoryCakes,
			UnitPrice: decimal.NewFromInt(850), StockQty: decimal.NewFromInt(40)},
		{Name: "Masala Namkeen Mix", Category: models.ProductCategoryNamkeen,
			UnitPrice: decimal.NewFromInt(120), StockQty: decimal.NewFromInt(300)},
		{Name: "Kaju Katli Box", Category: models.ProductCategorySweets,
			UnitPrice: decimal.NewFromInt(600), StockQty: decimal.NewFromInt(80)},
		{Name: "Festive Gift Hamper", Category: models.ProductCategoryGiftHampers,
			UnitPrice: decimal.NewFromInt(1500), StockQty: decimal.NewFromInt(25)},
	}
	for _, input := range products {
		if _, err := models.CreateProduct(ctx, &input); err != nil {
			log.Printf("product %q: %v", input.Name, err)
		}
	}
}
