package controllers

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/kendall-kelly/agency-sales-api/config"
	"github.com/kendall-kelly/agency-sales-api/services"
)

const productsPath = "/products"

func productService() *services.ProductService {
	return services.NewProductService(config.GetDB())
}

// ListProducts handles GET /api/v1/products
func ListProducts(c *gin.Context) {
	id, ok := currentIdentity(c)
	if !ok {
		return
	}

	products, err := productService().List(id, parseFilter(c))
	if err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, http.StatusOK, products)
}

// ProductsPage handles GET /products
func ProductsPage(c *gin.Context) {
	id, ok := webIdentity(c)
	if !ok {
		return
	}

	filter := parseFilter(c)
	products, err := productService().List(id, filter)
	if err != nil {
		failForm(c, DashboardPath, err)
		return
	}
	categories, err := productService().Categories(id)
	if err != nil {
		failForm(c, DashboardPath, err)
		return
	}
	renderPage(c, gin.H{"products": products, "categories": categories, "filters": filter})
}

// ProductPage handles GET /products/:id
func ProductPage(c *gin.Context) {
	id, ok := webIdentity(c)
	if !ok {
		return
	}
	productID, ok := webPathID(c, productsPath)
	if !ok {
		return
	}

	product, err := productService().Get(id, productID)
	if err != nil {
		failForm(c, productsPath, err)
		return
	}
	renderPage(c, gin.H{"product": product})
}

// CreateProduct handles POST /products
func CreateProduct(c *gin.Context) {
	id, ok := webIdentity(c)
	if !ok {
		return
	}

	var in services.ProductInput
	if !bindForm(c, &in, productsPath) {
		return
	}
	product, err := productService().Create(id, in)
	if err != nil {
		failForm(c, productsPath, err)
		return
	}
	succeedForm(c, productsPath, "create_product",
		fmt.Sprintf("Created product: %s (%s)", product.Name, product.SKU), "Product created successfully.")
}

// EditProduct handles POST /products/:id/edit
func EditProduct(c *gin.Context) {
	id, ok := webIdentity(c)
	if !ok {
		return
	}
	productID, ok := webPathID(c, productsPath)
	if !ok {
		return
	}

	var in services.ProductInput
	if !bindForm(c, &in, productsPath) {
		return
	}
	product, err := productService().Update(id, productID, in)
	if err != nil {
		failForm(c, productsPath, err)
		return
	}
	succeedForm(c, productsPath, "edit_product",
		fmt.Sprintf("Updated product: %s (%s)", product.Name, product.SKU), "Product updated successfully.")
}

// ToggleProductStatus handles POST /products/:id/toggle-status
func ToggleProductStatus(c *gin.Context) {
	id, ok := webIdentity(c)
	if !ok {
		return
	}
	productID, ok := webPathID(c, productsPath)
	if !ok {
		return
	}

	product, err := productService().ToggleStatus(id, productID)
	if err != nil {
		failForm(c, productsPath, err)
		return
	}
	word := statusWord(product.IsActive)
	succeedForm(c, productsPath, "toggle_product_status",
		fmt.Sprintf("Product %s %s", product.Name, word),
		fmt.Sprintf("Product %s has been %s.", product.Name, word))
}

// DeleteProduct handles POST /products/:id/delete
func DeleteProduct(c *gin.Context) {
	id, ok := webIdentity(c)
	if !ok {
		return
	}
	productID, ok := webPathID(c, productsPath)
	if !ok {
		return
	}

	product, err := productService().Delete(id, productID)
	if err != nil {
		failForm(c, productsPath, err)
		return
	}
	succeedForm(c, productsPath, "delete_product",
		fmt.Sprintf("Deleted product: %s (%s)", product.Name, product.SKU), "Product deleted successfully.")
}
