package config

import (
	"os"
	"strconv"
)

const DATABASE_TYPE = "DFLOW_DATABASE_TYPE"
const DATABASE_URL = "DFLOW_DATABASE_URL"
const DATABASE_SQLLITE_FILE_NAME = "DFLOW_DATABASE_SQLLITE_FILE_NAME"
const ENGINE_SERVER_WEB_PORT = "DFLOW_ENGINE_SERVER_WEB_PORT"
const ENGINE_SWEEP_INTERVAL = "DFLOW_ENGINE_SWEEP_INTERVAL"       //how often the timeout sweeper scans running executions
const ENGINE_SWEEP_BATCH_SIZE = "DFLOW_ENGINE_SWEEP_BATCH_SIZE"   //number of timed out executions handled per sweep
const ENGINE_DEFAULT_STEP_TIMEOUT_MINUTES = "DFLOW_ENGINE_DEFAULT_STEP_TIMEOUT_MINUTES" //applies when a step carries no timeout of its own

const DATABASE_TYPE_POSTGRES = "POSTGRES"
const DATABASE_TYPE_MYSQL = "MYSQL"
const DATABASE_TYPE_SQLLITE = "SQLLITE"

func GetSystemSettingInteger(settingKey string) int {
	val := GetSystemSettingString(settingKey)
	if val != "" {
		intValue, _ := strconv.Atoi(val)
		return intValue
	}
	return 0
}

func GetSystemSettingString(settingKey string) string {
	val := os.Getenv(settingKey)
	if val != "" {
		return val
	}
	if settingKey == ENGINE_SWEEP_INTERVAL {
		return "30s"
	}
	if settingKey == ENGINE_SWEEP_BATCH_SIZE {
		return "100"
	}
	if settingKey == ENGINE_DEFAULT_STEP_TIMEOUT_MINUTES {
		return "60"
	}
	if settingKey == ENGINE_SERVER_WEB_PORT {
		return "8080"
	}
	if settingKey == DATABASE_SQLLITE_FILE_NAME {
		return "./docuflow.db"
	}
	return ""
}
