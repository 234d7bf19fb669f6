// Package config loads demandcast configuration.
//
// Values are resolved in three layers, later layers winning:
//
//	1. Default()
//	2. a YAML file (DEMANDCAST_CONFIG, ./config.yaml or ./configs/config.yaml)
//	3. environment variables prefixed with DEMANDCAST_
//
// Environment variables follow the struct layout, for example:
//
//	DEMANDCAST_SERVER_PORT=8080
//	DEMANDCAST_DATA_SOURCES=Transactional_data_retail_01.csv,Transactional_data_retail_02.csv
//	DEMANDCAST_DATA_ITEM_COLUMN=StockCode
//	DEMANDCAST_FORECAST_DEFAULT_HORIZON=15
//	DEMANDCAST_LOGGING_LEVEL=debug
//
// A data source is a path to a .csv or .xlsx file ("book.xlsx#Sheet2" picks a
// sheet) or a Google Sheets handle of the form sheets://<spreadsheet-id>/<A1 range>.
// A configuration that names no source, an empty column name, or a horizon
// outside 1..52 fails validation.
package config
