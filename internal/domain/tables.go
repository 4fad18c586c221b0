package domain

var Tables = []interface{}{
	// Tenancy
	&Store{},
	// Catalog
	&Product{},
	&ProductImage{},
	&Category{},
	&Catalogue{},
	&CatalogueImage{},
	// System
	&AuditLog{},
	&StorageOrphan{},
}
